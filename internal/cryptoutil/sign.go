package cryptoutil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

// Sign produces a PSS-SHA256 signature over msg using the maximum salt
// length. Signing is deterministic only up to the salt's randomness.
func Sign(priv *rsa.PrivateKey, msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: sign: %w", err)
	}
	return sig, nil
}

// Verify checks a PSS-SHA256 signature against pub. It returns
// ErrInvalidSignature on any mismatch.
func Verify(pub *rsa.PublicKey, msg, sig []byte) error {
	digest := sha256.Sum256(msg)
	err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return ErrInvalidSignature
	}
	return nil
}
