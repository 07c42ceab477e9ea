// Package file stores encrypted transfer payloads.
//
// Storage is a flat key/value blob store with three operations: Put, Get
// and an idempotent Delete. Get reports a missing blob as ErrFileNotFound so
// callers can treat absence as a first-class outcome. Three backends are
// provided:
//
//   - LocalStorage: one file per blob in a directory, written atomically via
//     rename and confined to that directory.
//   - S3Storage: objects in an S3 or S3-compatible bucket (aws-sdk-go-v2).
//   - BadgerStorage: an embedded github.com/dgraph-io/badger/v4 database,
//     with optional per-entry TTL.
//
// All three implement Lister, which the expiry sweeper uses to find blobs
// whose metadata record was never written. LocalStorage also implements
// TempPruner for staging files left by an interrupted Put.
//
// SanitizeFilename, Extension and ReadAll help the upload path turn an
// untrusted multipart part into a bounded byte slice and a display name.
package file
