package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"policyledger/internal/ledger"
	"policyledger/internal/materializer"
	"policyledger/internal/policy"
)

// handleGetChain implements GET / (§6): the full block list plus difficulty.
func (s *Server) handleGetChain(w http.ResponseWriter, r *http.Request) {
	chain, difficulty, err := s.Chain.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chain": chain, "difficulty": difficulty})
}

// handleAddPolicy implements POST /add-policy (§6): admits a policy into the
// mempool if it validates and is not an exact duplicate, then gossips it to
// every known peer, outside the chain lock (§5, §4.8).
func (s *Server) handleAddPolicy(w http.ResponseWriter, r *http.Request) {
	var p policy.Policy
	if err := readJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "malformed policy")
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	added, err := s.Chain.AddPolicy(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if added {
		go s.Gossip.GossipPolicy(context.Background(), s.Peers.List(), p)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"added": added})
}

// handleUpdateCache implements GET /update-cache (§6): rebuilds the
// materialized view from the current chain, for nodes that want to force a
// refresh rather than wait for the next block or consensus round.
func (s *Server) handleUpdateCache(w http.ResponseWriter, r *http.Request) {
	s.setView(materializer.Rebuild(s.Chain))
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleMine implements GET /mine (§6, §4.5): drains the mempool into a
// freshly mined block, materializes its policy delta into the view, gossips
// the block to every peer, and reports the literal "Block #N has been
// mined!" message the source returns.
func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	block, err := s.Chain.Mine()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrNoTransactions) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	view := s.view()
	materializer.Apply(view, block.Body.ResourcePolicies, block.Body.IdentityPolicies)

	go s.Gossip.GossipBlock(context.Background(), s.Peers.List(), block)
	writeJSON(w, http.StatusOK, fmt.Sprintf("Block #%d has been mined!", block.Header.Index))
}

// handleConsensus implements GET /consensus (§6, §4.7): the longest-chain
// rule across every known peer, each bounded to a 2.5s fetch.
func (s *Server) handleConsensus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ledger.StartupTimeout)
	defer cancel()

	replaced, err := s.Chain.ResolveConflicts(ctx, s.Peers.List(), s.Gossip, s.Log)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if replaced {
		s.setView(materializer.Rebuild(s.Chain))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"replaced": replaced})
}

// handleAddBlock implements POST /add-block (§6): admits a single
// peer-mined block onto the local chain if it validates against the
// current head, materializing its delta on success.
func (s *Server) handleAddBlock(w http.ResponseWriter, r *http.Request) {
	block := &ledger.Block{}
	if err := readJSON(r, block); err != nil {
		writeError(w, http.StatusBadRequest, "malformed block")
		return
	}

	view := s.view()
	err := s.Chain.AddBlock(block, func(b *ledger.Block) error {
		materializer.Apply(view, b.Body.ResourcePolicies, b.Body.IdentityPolicies)
		return nil
	})
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// handleRegisterPeer implements GET /register-peer (§6, §4.8): one half of
// the mutual-registration handshake, where the caller's own remote address
// is added to this node's registry. A caller already present is a 400, per
// the "exists" error row; otherwise the node's current chain, difficulty,
// and peer set are returned so the new peer can sync immediately.
func (s *Server) handleRegisterPeer(w http.ResponseWriter, r *http.Request) {
	if !s.Peers.Add(r.RemoteAddr) {
		writeError(w, http.StatusBadRequest, "peer already registered")
		return
	}

	chain, difficulty, err := s.Chain.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chain":      chain,
		"difficulty": difficulty,
		"peers":      s.Peers.List(),
	})
}

// handleRegisterWithNode implements POST /register-with-node (§6, §4.8):
// the other half, where this node both remembers target and announces
// itself back to it, within a bounded timeout.
func (s *Server) handleRegisterWithNode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Peer string `json:"peer"`
	}
	if err := readJSON(r, &body); err != nil || body.Peer == "" {
		writeError(w, http.StatusBadRequest, "missing peer")
		return
	}
	s.Peers.Add(body.Peer)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.Gossip.AnnounceSelf(ctx, body.Peer, s.SelfURL); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"added": true})
}
