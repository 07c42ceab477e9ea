package secrets

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// FingerprintLength is the number of hex characters kept from the MAC.
	FingerprintLength = 32

	// MinSecretLength is the shortest accepted fingerprint secret.
	MinSecretLength = 16

	fingerprintInfo = "blackfile/key-fingerprint"
)

// Fingerprinter binds a symmetric key to a transfer token with a keyed hash,
// so a presented key can be checked without the key ever being stored.
type Fingerprinter struct {
	macKey []byte
}

// NewFingerprinter derives the MAC key from the process-wide secret with
// HKDF-SHA256.
func NewFingerprinter(secret string) (*Fingerprinter, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrInvalidSecret
	}

	macKey := make([]byte, KeySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(fingerprintInfo))
	if _, err := io.ReadFull(r, macKey); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return &Fingerprinter{macKey: macKey}, nil
}

// Fingerprint returns HMAC-SHA256(key || token), hex encoded and truncated to
// FingerprintLength characters.
func (f *Fingerprinter) Fingerprint(key []byte, token string) string {
	mac := hmac.New(sha256.New, f.macKey)
	mac.Write(key)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))[:FingerprintLength]
}

// Match reports whether key fingerprints to keyID for token. The comparison
// runs in constant time.
func (f *Fingerprinter) Match(key []byte, token, keyID string) bool {
	got := f.Fingerprint(key, token)
	return subtle.ConstantTimeCompare([]byte(got), []byte(keyID)) == 1
}

// EncodeKey renders key as URL-safe base64 without padding, the form shown
// to the sender.
func EncodeKey(key []byte) string {
	return base64.RawURLEncoding.EncodeToString(key)
}

// DecodeKey parses a key produced by EncodeKey. Trailing padding and
// surrounding whitespace are tolerated. Anything that does not decode to
// exactly KeySize bytes returns ErrInvalidKeyFormat.
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if s == "" {
		return nil, ErrInvalidKeyFormat
	}

	key, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(key) != KeySize {
		return nil, ErrInvalidKeyFormat
	}
	return key, nil
}
