// Package qrcode renders verification links as PNG QR codes using
// github.com/skip2/go-qrcode, either as raw bytes for an image endpoint or
// as a data URI for inline embedding.
package qrcode
