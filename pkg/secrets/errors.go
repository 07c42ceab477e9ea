package secrets

import "errors"

var (
	ErrEncryptionFailed    = errors.New("encryption failed")
	ErrDecryptionFailed    = errors.New("decryption failed")
	ErrInvalidKeyFormat    = errors.New("invalid key format")
	ErrInvalidSecret       = errors.New("fingerprint secret must be at least 16 bytes")
	ErrKeyDerivationFailed = errors.New("key derivation failed")
	ErrRandomFailed        = errors.New("random source failed")
)
