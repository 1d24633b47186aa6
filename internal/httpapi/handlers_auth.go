package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"policyledger/internal/authn"
	"policyledger/internal/authz"
)

// authRequest covers both halves of the /auth union of §4.9: a
// bare client_pk requests a challenge, a client_pk plus message/signature
// answers one. Exactly one shape is populated per request.
type authRequest struct {
	ClientPK  string               `json:"client_pk"`
	ClientID  string               `json:"client_id"`
	Message   *authn.SignedMessage `json:"message"`
	Signature string               `json:"signature"`
}

// handleAuthentication implements POST /auth (§6, §4.9): issues a
// nonce challenge, or verifies a signed challenge response and issues a
// session JWT.
func (s *Server) handleAuthentication(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := readJSON(r, &req); err != nil || req.ClientPK == "" {
		writeError(w, http.StatusBadRequest, "missing client_pk")
		return
	}

	if req.Message == nil {
		challenge, err := s.Auth.Challenge(req.ClientPK)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"nonce":  challenge.Nonce,
			"domain": challenge.Domain,
			"expire": challenge.Expire.Unix(),
		})
		return
	}

	token, err := s.Auth.Verify(req.ClientPK, *req.Message, req.Signature)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]string{"token": token})
	case errors.Is(err, authn.ErrNoChallenge):
		writeError(w, http.StatusForbidden, "no challenge has been issued for this client")
	case errors.Is(err, authn.ErrNonceExpired), errors.Is(err, authn.ErrNonceMismatch):
		writeError(w, http.StatusForbidden, "invalid or expired nonce")
	case errors.Is(err, authn.ErrBadHex):
		writeError(w, http.StatusBadRequest, "signature or public key must be valid hex")
	case errors.Is(err, authn.ErrInvalidSignature):
		writeError(w, http.StatusForbidden, "invalid signature")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleCheckAuth implements POST /check-auth (§6, §4.9 step 3): a token
// this node's own keys can verify is authoritative; otherwise every peer is
// asked in turn and the first affirmative answer wins.
func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JWT string `json:"jwt"`
	}
	if err := readJSON(r, &body); err != nil || body.JWT == "" {
		writeError(w, http.StatusBadRequest, "missing jwt")
		return
	}

	if s.Auth.VerifyLocal(body.JWT, s.KeyForIssuer) {
		writeJSON(w, http.StatusOK, map[string]bool{"result": true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	for _, p := range s.Peers.List() {
		ok, err := s.Gossip.CheckAuthWithPeer(ctx, p, body.JWT)
		if err != nil {
			continue
		}
		if ok {
			writeJSON(w, http.StatusOK, map[string]bool{"result": true})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"result": false})
}

// authzRequest mirrors extract_user_data's input shape (§4.10): the
// requester's identity claims alongside the action/resource it is
// attempting.
type authzRequest struct {
	Input struct {
		Account string   `json:"account"`
		Action  []string `json:"action"`
		Bucket  string   `json:"bucket"`
		Claims  struct {
			ClientID string `json:"client_id"`
		} `json:"claims"`
	} `json:"input"`
}

// handleAuthorize implements POST /authZ (§6, §4.10): the three-tier
// identity-then-resource policy evaluation.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req authzRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	authzReq := authz.Request{
		ClientID:  req.Input.Claims.ClientID,
		Action:    req.Input.Action,
		Bucket:    req.Input.Bucket,
		Resources: []string{req.Input.Bucket},
	}

	verdict, err := authz.Authorize(s.view(), authzReq)
	switch {
	case errors.Is(err, authz.ErrNoIdentityPolicies):
		writeError(w, http.StatusForbidden, "this user has no identity policies associated with it")
		return
	case errors.Is(err, authz.ErrNoResourcePolicies):
		writeError(w, http.StatusForbidden, "no resource policies have been found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !verdict.Allow {
		writeError(w, http.StatusForbidden, "policies do not allow these actions: "+verdict.Reason)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": map[string]bool{"allow": true}})
}
