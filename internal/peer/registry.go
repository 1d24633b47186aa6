// Package peer implements the peer registry and best-effort chain/policy
// gossip of §4.8: nodes announce themselves to each other, and both mined
// blocks and newly admitted policies are broadcast without retry.
package peer

import "sync"

// Registry is the set of known peer base URLs, deduplicated by exact string
// match (§4.8: "register-peer is idempotent").
type Registry struct {
	mu    sync.RWMutex
	peers map[string]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]struct{})}
}

// Add registers peer, returning false if it was already known.
func (r *Registry) Add(peer string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[peer]; ok {
		return false
	}
	r.peers[peer] = struct{}{}
	return true
}

// List returns every known peer, in no particular order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.peers))
	for p := range r.peers {
		out = append(out, p)
	}
	return out
}

// Len reports the number of known peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
