package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Digits is the length of a generated code.
	Digits = 6
	// SaltSize is the number of random bytes in a salt.
	SaltSize = 16
)

var codeSpace = big.NewInt(1_000_000)

// Generate returns a six-digit code drawn uniformly from 000000-999999 using
// crypto/rand.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", errors.Join(ErrFailedToGenerateCode, err)
	}
	return fmt.Sprintf("%0*d", Digits, n.Int64()), nil
}

// NewSalt returns SaltSize random bytes, hex encoded.
func NewSalt() (string, error) {
	b := make([]byte, SaltSize)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrFailedToGenerateSalt, err)
	}
	return hex.EncodeToString(b), nil
}

// Hash returns the hex HMAC-SHA256 of code keyed by salt.
func Hash(code, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the hash of code and compares it with digest in constant
// time. A digest that is not valid hex never matches.
func Verify(code, salt, digest string) bool {
	want, err := hex.DecodeString(digest)
	if err != nil || len(want) != sha256.Size {
		return false
	}

	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(code))
	return subtle.ConstantTimeCompare(mac.Sum(nil), want) == 1
}

// Normalize strips the separators people type when copying a code from an
// email, so "123 456" and "123-456" both become "123456".
func Normalize(input string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(input))
}

// Valid reports whether s has the shape of a code: exactly Digits ASCII digits.
func Valid(s string) bool {
	if len(s) != Digits {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
