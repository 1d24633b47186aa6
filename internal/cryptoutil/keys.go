// Package cryptoutil implements the node's cryptographic primitives: RSA
// keypair generation, PSS message signing/verification, SHA-256 content
// hashing, nonce generation, and RS256 JWT issuance/verification.
package cryptoutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// Default RSA parameters. The key size is overridable via config (KEY_SIZE).
// The public exponent is always 65537, since crypto/rsa fixes it; the
// RSA_PUBLIC_EXP config value is loaded but not applied to key generation.
const (
	DefaultKeySize     = 2048
	DefaultPublicExp   = 65537
)

// ErrInvalidKey is returned when a hex-encoded OpenSSH public key cannot be
// parsed.
var ErrInvalidKey = errors.New("cryptoutil: invalid key")

// ErrInvalidSignature is returned by Verify on any signature mismatch.
var ErrInvalidSignature = errors.New("cryptoutil: invalid signature")

// KeyPair holds a node's RSA identity.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// GenerateKeyPair mints an RSA keypair at the given bit size. The exponent is
// fixed by Go's crypto/rsa to 65537; keySize must be >= 2048 per spec.
func GenerateKeyPair(keySize int) (*KeyPair, error) {
	if keySize < DefaultKeySize {
		return nil, fmt.Errorf("cryptoutil: key size %d below minimum %d", keySize, DefaultKeySize)
	}
	priv, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: generate key: %w", err)
	}
	return &KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// Sha256Hex returns the lowercase hex SHA-256 digest of b.
func Sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// EncodeOpenSSHHex renders an RSA public key as hex-encoded OpenSSH
// authorized-keys text (used as the `iss`/`client_pk` wire format).
func EncodeOpenSSHHex(pub *rsa.PublicKey) (string, error) {
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return hex.EncodeToString(ssh.MarshalAuthorizedKey(sshPub)), nil
}

// DecodeOpenSSHHex parses a hex-encoded OpenSSH public key back into an RSA
// public key. Returns ErrInvalidKey on malformed hex or a non-RSA key.
func DecodeOpenSSHHex(hexKey string) (*rsa.PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	sshPub, _, _, _, err := ssh.ParseAuthorizedKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	cryptoPub, ok := sshPub.(ssh.CryptoPublicKey)
	if !ok {
		return nil, ErrInvalidKey
	}
	rsaPub, ok := cryptoPub.CryptoPublicKey().(*rsa.PublicKey)
	if !ok {
		return nil, ErrInvalidKey
	}
	return rsaPub, nil
}

// RandomNonceHex returns a hex-encoded random nonce of n bytes.
func RandomNonceHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("cryptoutil: random nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
