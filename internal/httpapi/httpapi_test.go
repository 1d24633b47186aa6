package httpapi_test

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"policyledger/internal/authn"
	"policyledger/internal/contracts"
	"policyledger/internal/cryptoutil"
	"policyledger/internal/httpapi"
	"policyledger/internal/ledger"
	"policyledger/internal/materializer"
	"policyledger/internal/peer"
	"policyledger/internal/policy"
)

// noopInvoker mirrors internal/ledger's test fake: it routes a policy
// straight onto the candidate block without any real sandbox.
type noopInvoker struct{}

func (noopInvoker) Invoke(bytecode []byte, tx policy.Policy, block contracts.BlockHandle) error {
	if tx.Kind == policy.KindResource {
		return block.PutResourcePolicy(tx)
	}
	return block.PutIdentityPolicy(tx.AttachedTo, tx)
}

func newTestServer(t *testing.T) (*httpapi.Server, http.Handler) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	mac := contracts.NewHeader(0, ledger.MACContractName, "test MAC", []byte("mac-bytecode"))
	chain, err := ledger.NewChain(1, noopInvoker{}, contracts.NewManager(), log, mac)
	require.NoError(t, err)

	kp, err := cryptoutil.GenerateKeyPair(cryptoutil.DefaultKeySize)
	require.NoError(t, err)

	auth := authn.NewAuthenticator(authn.Settings{NonceExpMin: 5, NonceExpS: 0, NonceSize: 16}, kp.Private, kp.Public)

	s := &httpapi.Server{
		Chain:   chain,
		View:    materializer.New(),
		Invoker: noopInvoker{},
		Peers:   peer.NewRegistry(),
		Gossip:  peer.NewClient(2*time.Second, log),
		Auth:    auth,
		Priv:    kp.Private,
		Pub:     kp.Public,
		SelfURL: "http://self.invalid",
		Log:     log,
		KeyForIssuer: func(iss string) (*rsa.PublicKey, error) {
			return kp.Public, nil
		},
	}
	return s, httpapi.NewRouter(s)
}

func TestHealthzReportsChainAndMempoolLength(t *testing.T) {
	_, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 1, body["chain_len"])
	require.EqualValues(t, 0, body["mempool_len"])
}

func TestGetChainReturnsGenesisAndDifficulty(t *testing.T) {
	_, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Chain      []json.RawMessage `json:"chain"`
		Difficulty int                `json:"difficulty"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Chain, 1)
	require.Equal(t, 1, body.Difficulty)
}

func TestAddPolicyThenMineAppliesToView(t *testing.T) {
	s, router := newTestServer(t)

	p := policy.Policy{
		ID:     "p1",
		Kind:   policy.KindResource,
		Action: policy.DeltaAdd,
		Statements: map[string]policy.Statement{
			"s1": {Effect: policy.EffectAllow, Action: policy.StringOrSlice{"read"}, Resource: policy.StringOrSlice{"bucket-a"}, Principal: policy.StringOrSlice{"alice"}},
		},
	}
	raw, err := json.Marshal(p)
	require.NoError(t, err)

	addReq := httptest.NewRequest(http.MethodPost, "/add-policy", bytes.NewReader(raw))
	addRec := httptest.NewRecorder()
	router.ServeHTTP(addRec, addReq)
	require.Equal(t, http.StatusOK, addRec.Code)

	mineReq := httptest.NewRequest(http.MethodGet, "/mine", nil)
	mineRec := httptest.NewRecorder()
	router.ServeHTTP(mineRec, mineReq)
	require.Equal(t, http.StatusOK, mineRec.Code)
	var mined string
	require.NoError(t, json.Unmarshal(mineRec.Body.Bytes(), &mined))
	require.Equal(t, "Block #1 has been mined!", mined)
	require.Contains(t, s.View.ResourcePolicies, "p1")

	chainReq := httptest.NewRequest(http.MethodGet, "/", nil)
	chainRec := httptest.NewRecorder()
	router.ServeHTTP(chainRec, chainReq)
	var body struct {
		Chain []json.RawMessage `json:"chain"`
	}
	require.NoError(t, json.Unmarshal(chainRec.Body.Bytes(), &body))
	require.Len(t, body.Chain, 2)
}

func TestMineWithEmptyMempoolReturnsBadRequest(t *testing.T) {
	_, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/mine", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterPeerRejectsDuplicateCaller(t *testing.T) {
	_, router := newTestServer(t)

	first := httptest.NewRequest(http.MethodGet, "/register-peer", nil)
	firstRec := httptest.NewRecorder()
	router.ServeHTTP(firstRec, first)
	require.Equal(t, http.StatusOK, firstRec.Code)

	var resp struct {
		Chain      []json.RawMessage `json:"chain"`
		Difficulty int                `json:"difficulty"`
		Peers      []string           `json:"peers"`
	}
	require.NoError(t, json.Unmarshal(firstRec.Body.Bytes(), &resp))
	require.Len(t, resp.Chain, 1)
	require.Equal(t, 1, resp.Difficulty)
	require.Len(t, resp.Peers, 1)

	second := httptest.NewRequest(http.MethodGet, "/register-peer", nil)
	secondRec := httptest.NewRecorder()
	router.ServeHTTP(secondRec, second)
	require.Equal(t, http.StatusBadRequest, secondRec.Code)
}

func TestAuthenticationIssuesChallenge(t *testing.T) {
	_, router := newTestServer(t)

	kp, err := cryptoutil.GenerateKeyPair(cryptoutil.DefaultKeySize)
	require.NoError(t, err)
	clientPK, err := cryptoutil.EncodeOpenSSHHex(kp.Public)
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"client_pk": clientPK})
	req := httptest.NewRequest(http.MethodPost, "/auth", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Nonce  string `json:"nonce"`
		Domain string `json:"domain"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Nonce)
	require.NotEmpty(t, resp.Domain)
}

func TestAuthorizeWithNoIdentityPoliciesIsForbidden(t *testing.T) {
	_, router := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"input": map[string]any{
			"action": []string{"read"},
			"bucket": "bucket-a",
			"claims": map[string]string{"client_id": "ghost"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/authZ", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}
