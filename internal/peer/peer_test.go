package peer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"policyledger/internal/peer"
)

func TestRegistryAddIsIdempotent(t *testing.T) {
	r := peer.NewRegistry()
	require.True(t, r.Add("http://peer-a"))
	require.False(t, r.Add("http://peer-a"))
	require.Equal(t, 1, r.Len())
}

func TestClientFetchChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"chain":      []json.RawMessage{json.RawMessage(`{"header":{}}`)},
			"difficulty": 2,
		})
	}))
	defer srv.Close()

	c := peer.NewClient(2*time.Second, nil)
	chain, difficulty, err := c.FetchChain(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	require.Equal(t, 2, difficulty)
}

func TestClientGossipPolicyIsBestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := peer.NewClient(2*time.Second, nil)
	// Must not panic even though every peer fails.
	c.GossipPolicy(context.Background(), []string{srv.URL, "http://unreachable.invalid"}, map[string]string{"id": "p1"})
}
