package authn_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"policyledger/internal/authn"
	"policyledger/internal/canonicaljson"
	"policyledger/internal/cryptoutil"
)

func newAuthenticator(t *testing.T) (*authn.Authenticator, *cryptoutil.KeyPair) {
	t.Helper()
	kp, err := cryptoutil.GenerateKeyPair(cryptoutil.DefaultKeySize)
	require.NoError(t, err)
	a := authn.NewAuthenticator(authn.Settings{NonceExpMin: 1, NonceExpS: 0, NonceSize: 16}, kp.Private, kp.Public)
	return a, kp
}

func TestChallengeThenVerifyIssuesToken(t *testing.T) {
	a, clientKP := newAuthenticator(t)
	clientPK, err := cryptoutil.EncodeOpenSSHHex(clientKP.Public)
	require.NoError(t, err)

	challenge, err := a.Challenge(clientPK)
	require.NoError(t, err)
	require.NotEmpty(t, challenge.Nonce)

	msg := authn.SignedMessage{Nonce: challenge.Nonce, ClientID: "client-1", Principal: "alice", Action: []string{"GetObject"}, Resources: []string{"b1"}}
	canonical, err := canonicaljson.Marshal(msg)
	require.NoError(t, err)
	sig, err := cryptoutil.Sign(clientKP.Private, canonical)
	require.NoError(t, err)

	token, err := a.Verify(clientPK, msg, hex.EncodeToString(sig))
	require.NoError(t, err)
	require.NotEmpty(t, token)
}

func TestVerifyRejectsReplayedNonce(t *testing.T) {
	a, clientKP := newAuthenticator(t)
	clientPK, err := cryptoutil.EncodeOpenSSHHex(clientKP.Public)
	require.NoError(t, err)

	challenge, err := a.Challenge(clientPK)
	require.NoError(t, err)

	msg := authn.SignedMessage{Nonce: challenge.Nonce, ClientID: "client-1"}
	canonical, err := canonicaljson.Marshal(msg)
	require.NoError(t, err)
	sig, err := cryptoutil.Sign(clientKP.Private, canonical)
	require.NoError(t, err)

	_, err = a.Verify(clientPK, msg, hex.EncodeToString(sig))
	require.NoError(t, err)

	_, err = a.Verify(clientPK, msg, hex.EncodeToString(sig))
	require.ErrorIs(t, err, authn.ErrNoChallenge)
}

func TestVerifyRejectsWrongSignature(t *testing.T) {
	a, clientKP := newAuthenticator(t)
	clientPK, err := cryptoutil.EncodeOpenSSHHex(clientKP.Public)
	require.NoError(t, err)

	challenge, err := a.Challenge(clientPK)
	require.NoError(t, err)

	other, err := cryptoutil.GenerateKeyPair(cryptoutil.DefaultKeySize)
	require.NoError(t, err)

	msg := authn.SignedMessage{Nonce: challenge.Nonce}
	canonical, err := canonicaljson.Marshal(msg)
	require.NoError(t, err)
	sig, err := cryptoutil.Sign(other.Private, canonical)
	require.NoError(t, err)

	_, err = a.Verify(clientPK, msg, hex.EncodeToString(sig))
	require.ErrorIs(t, err, authn.ErrInvalidSignature)
}
