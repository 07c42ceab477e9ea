// Package otp issues and checks the six-digit one-time codes that accompany
// a transfer link.
//
// Only a salted hash of a code is ever stored:
//
//	code, _ := otp.Generate()
//	salt, _ := otp.NewSalt()
//	digest := otp.Hash(code, salt)
//
//	// later
//	ok := otp.Verify(otp.Normalize(input), salt, digest)
package otp
