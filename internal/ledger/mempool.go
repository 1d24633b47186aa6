package ledger

import (
	"encoding/json"

	"policyledger/internal/policy"
)

// mempool is an ordered, equality-deduplicated list of pending policies,
// owned by Chain and mutated only through its methods (§5).
type mempool struct {
	items []policy.Policy
	seen  map[string]struct{}
}

func newMempool() *mempool {
	return &mempool{seen: make(map[string]struct{})}
}

func fingerprint(p policy.Policy) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Add appends p unless an exactly equal policy is already pending. Returns
// true if it was added.
func (m *mempool) Add(p policy.Policy) (bool, error) {
	fp, err := fingerprint(p)
	if err != nil {
		return false, err
	}
	if _, ok := m.seen[fp]; ok {
		return false, nil
	}
	m.seen[fp] = struct{}{}
	m.items = append(m.items, p)
	return true, nil
}

// Snapshot returns a copy of the pending policies in insertion order.
func (m *mempool) Snapshot() []policy.Policy {
	out := make([]policy.Policy, len(m.items))
	copy(out, m.items)
	return out
}

// Clear empties the mempool, as mining does on success.
func (m *mempool) Clear() {
	m.items = nil
	m.seen = make(map[string]struct{})
}

func (m *mempool) Len() int { return len(m.items) }
