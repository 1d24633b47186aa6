package cryptoutil

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ErrExpired is returned by VerifyJWT when the token's exp claim has passed.
var ErrExpired = errors.New("cryptoutil: token expired")

// Claims carries the session credential payload described in §6: the
// authenticated subject, the caller-supplied authorization context, and the
// node's own RS256 issuer identity.
type Claims struct {
	Sub          string   `json:"sub"`
	ClientID     string   `json:"client_id"`
	Role         string   `json:"role"`
	Principal    string   `json:"principal"`
	Action       []string `json:"action"`
	Resources    []string `json:"resources"`
	ResourceData any      `json:"resource_data,omitempty"`
	Iss          string   `json:"iss"`
	jwt.RegisteredClaims
}

// IssueJWT signs claims with the node's private key (RS256). iat is set to
// now; exp is now + nonceExpMin*60 + nonceExpS. iss is set to the hex OpenSSH
// encoding of the issuing node's public key.
func IssueJWT(priv *rsa.PrivateKey, pub *rsa.PublicKey, claims Claims, nonceExpMin, nonceExpS int) (string, error) {
	iss, err := EncodeOpenSSHHex(pub)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(nonceExpMin)*time.Minute + time.Duration(nonceExpS)*time.Second)

	claims.Iss = iss
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		Issuer:    iss,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(priv)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: issue jwt: %w", err)
	}
	return signed, nil
}

// VerifyJWT parses and verifies token, resolving the verification key from
// the claimed `iss` (hex OpenSSH public key) via keyForIssuer. Returns
// ErrInvalidSignature on a bad signature, ErrExpired on an expired token.
func VerifyJWT(token string, keyForIssuer func(iss string) (*rsa.PublicKey, error)) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidSignature
		}
		iss, _ := t.Claims.(*Claims)
		if iss == nil {
			return nil, ErrInvalidSignature
		}
		return keyForIssuer(iss.Iss)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}
