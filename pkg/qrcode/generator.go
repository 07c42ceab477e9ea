package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent = errors.New("qrcode: empty content")
	ErrEncodeFailed = errors.New("qrcode: encode failed")
)

const (
	DefaultSize = 256
	MaxSize     = 1024
)

// Generate encodes content as a PNG QR code with medium error correction.
// Sizes outside (0, MaxSize] fall back to DefaultSize.
func Generate(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 || size > MaxSize {
		size = DefaultSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailed, err)
	}
	return png, nil
}

// GenerateBase64Image returns the QR code as a data URI suitable for an
// <img src> attribute.
func GenerateBase64Image(content string, size int) (string, error) {
	png, err := Generate(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
