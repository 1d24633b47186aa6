package authn

import (
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"policyledger/internal/canonicaljson"
	"policyledger/internal/cryptoutil"
)

// Errors surfaced as the documented status codes of §6/§7.
var (
	ErrNoChallenge     = errors.New("authn: no challenge outstanding for client")
	ErrNonceExpired    = errors.New("authn: nonce expired")
	ErrNonceMismatch   = errors.New("authn: nonce mismatch")
	ErrBadHex          = errors.New("authn: signature or public key is not valid hex")
	ErrInvalidSignature = errors.New("authn: invalid signature")
)

// Settings mirrors the node's NONCE_EXP_MIN / NONCE_EXP_S / NONCE_SIZE
// configuration (§8).
type Settings struct {
	NonceExpMin int
	NonceExpS   int
	NonceSize   int
}

// ChallengeOut is what Challenge returns to the client: the fresh nonce, the
// sign-in domain, and the nonce's expiry (§4.9 step 1).
type ChallengeOut struct {
	Nonce  string
	Domain string
	Expire time.Time
}

const domain = "Sign In to access MinIO resources"

// Authenticator runs the two-step challenge/response flow and issues
// session JWTs on success.
type Authenticator struct {
	nonces   *NonceStore
	settings Settings
	priv     *rsa.PrivateKey
	pub      *rsa.PublicKey
}

// NewAuthenticator builds an Authenticator signing JWTs with the node's own
// RSA identity.
func NewAuthenticator(settings Settings, priv *rsa.PrivateKey, pub *rsa.PublicKey) *Authenticator {
	return &Authenticator{nonces: NewNonceStore(), settings: settings, priv: priv, pub: pub}
}

// Challenge implements §4.9 step 1: mint and remember a nonce for clientPK.
func (a *Authenticator) Challenge(clientPK string) (ChallengeOut, error) {
	nonce, err := cryptoutil.RandomNonceHex(a.settings.NonceSize)
	if err != nil {
		return ChallengeOut{}, err
	}
	ttl := time.Duration(a.settings.NonceExpMin)*time.Minute + time.Duration(a.settings.NonceExpS)*time.Second
	expire := a.nonces.Issue(clientPK, nonce, ttl)
	return ChallengeOut{Nonce: nonce, Domain: domain, Expire: expire}, nil
}

// SignedMessage is the canonical payload the client signs in step 2: the
// issued nonce plus the authorization context it is requesting a session
// for (§4.9 step 2, §6's JWT claim set).
type SignedMessage struct {
	Nonce        string   `json:"nonce"`
	ClientID     string   `json:"client_id"`
	Principal    string   `json:"principal"`
	Action       []string `json:"action"`
	Resources    []string `json:"resources"`
	ResourceData any      `json:"resource_data,omitempty"`
}

// Verify implements §4.9 step 2: checks the nonce, verifies the signature
// over the canonical message bytes, and on success issues a session JWT.
func (a *Authenticator) Verify(clientPK string, msg SignedMessage, signatureHex string) (string, error) {
	switch a.nonces.Consume(clientPK, msg.Nonce) {
	case LookupMissing:
		return "", ErrNoChallenge
	case LookupExpired:
		return "", ErrNonceExpired
	case LookupMismatch:
		return "", ErrNonceMismatch
	}

	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadHex, err)
	}
	clientKey, err := cryptoutil.DecodeOpenSSHHex(clientPK)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadHex, err)
	}

	canonical, err := canonicaljson.Marshal(msg)
	if err != nil {
		return "", err
	}
	if err := cryptoutil.Verify(clientKey, canonical, sig); err != nil {
		return "", ErrInvalidSignature
	}

	claims := cryptoutil.Claims{
		Sub:          clientPK,
		ClientID:     msg.ClientID,
		Role:         "user",
		Principal:    msg.Principal,
		Action:       msg.Action,
		Resources:    msg.Resources,
		ResourceData: msg.ResourceData,
	}
	return cryptoutil.IssueJWT(a.priv, a.pub, claims, a.settings.NonceExpMin, a.settings.NonceExpS)
}

// VerifyLocal implements the local half of /check-auth (§4.9 step 3): a
// token this node's own keys can verify is authoritative. Peer consultation
// lives in internal/httpapi, which owns the peer registry; this method only
// does the local check.
func (a *Authenticator) VerifyLocal(token string, keyForIssuer func(iss string) (*rsa.PublicKey, error)) bool {
	_, err := cryptoutil.VerifyJWT(token, keyForIssuer)
	return err == nil
}
