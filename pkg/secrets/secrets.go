package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// TokenSize is the number of random bytes in a transfer token.
	TokenSize = 16
)

// Encrypt seals plaintext with a freshly generated key and nonce using
// AES-256-GCM without associated data. The key is returned to the caller and
// must never be stored next to the ciphertext.
func Encrypt(plaintext []byte) (key, nonce, ciphertext []byte, err error) {
	key = make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, nil, nil, errors.Join(ErrEncryptionFailed, err)
	}

	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, nil, errors.Join(ErrEncryptionFailed, err)
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, nil, errors.Join(ErrEncryptionFailed, err)
	}

	return key, nonce, aead.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt. Every failure, whether a bad
// key length, a bad nonce length or an authentication tag mismatch, is
// reported as ErrDecryptionFailed with no further detail.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	if len(key) != KeySize || len(nonce) != NonceSize {
		return nil, ErrDecryptionFailed
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// GenerateToken returns 128 random bits, hex encoded.
func GenerateToken() (string, error) {
	b := make([]byte, TokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrRandomFailed, err)
	}
	return hex.EncodeToString(b), nil
}

// SHA256Hex returns the hex encoded SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Clear zeroes b. Call it on key material once it is no longer needed.
func Clear(b []byte) {
	clear(b)
}
