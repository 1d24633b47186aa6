package cryptoutil_test

import (
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/require"

	"policyledger/internal/cryptoutil"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := cryptoutil.GenerateKeyPair(cryptoutil.DefaultKeySize)
	require.NoError(t, err)

	msg := []byte(`{"nonce":"abc"}`)
	sig, err := cryptoutil.Sign(kp.Private, msg)
	require.NoError(t, err)

	require.NoError(t, cryptoutil.Verify(kp.Public, msg, sig))
	require.ErrorIs(t, cryptoutil.Verify(kp.Public, []byte("tampered"), sig), cryptoutil.ErrInvalidSignature)
}

func TestOpenSSHRoundTrip(t *testing.T) {
	kp, err := cryptoutil.GenerateKeyPair(cryptoutil.DefaultKeySize)
	require.NoError(t, err)

	hexKey, err := cryptoutil.EncodeOpenSSHHex(kp.Public)
	require.NoError(t, err)

	parsed, err := cryptoutil.DecodeOpenSSHHex(hexKey)
	require.NoError(t, err)
	require.Equal(t, kp.Public.N, parsed.N)

	_, err = cryptoutil.DecodeOpenSSHHex("not-hex-at-all-zz")
	require.ErrorIs(t, err, cryptoutil.ErrInvalidKey)
}

func TestJWTIssueVerify(t *testing.T) {
	kp, err := cryptoutil.GenerateKeyPair(cryptoutil.DefaultKeySize)
	require.NoError(t, err)

	claims := cryptoutil.Claims{
		Sub:       "client-pk-hex",
		ClientID:  "c1",
		Role:      "user",
		Principal: "c1",
		Action:    []string{"s3:GetObject"},
		Resources: []string{"b"},
	}
	tok, err := cryptoutil.IssueJWT(kp.Private, kp.Public, claims, 5, 0)
	require.NoError(t, err)

	verified, err := cryptoutil.VerifyJWT(tok, func(iss string) (*rsa.PublicKey, error) {
		return kp.Public, nil
	})
	require.NoError(t, err)
	require.Equal(t, "c1", verified.ClientID)
}
