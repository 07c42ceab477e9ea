// Package secrets holds the cryptographic primitives behind a transfer.
//
// Encrypt seals file bytes with AES-256-GCM under a key and nonce generated
// for that call alone. Decrypt reverses it and collapses every failure into
// ErrDecryptionFailed so callers cannot distinguish a wrong key from tampered
// ciphertext.
//
// A Fingerprinter turns the process-wide secret into an HMAC key (via HKDF)
// and binds a symmetric key to a token:
//
//	fp, err := secrets.NewFingerprinter(cfg.FingerprintSecret)
//	keyID := fp.Fingerprint(key, token)
//	ok := fp.Match(presented, token, keyID)
//
// EncodeKey and DecodeKey convert keys to and from the text form handed to
// the sender.
package secrets
