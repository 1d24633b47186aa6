// Package ledger implements the chained ledger engine of §4: block
// structure, proof-of-work mining with in-block contract execution,
// block/chain validation, longest-chain replacement, and the mempool and
// gossip surfaces that feed it.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"policyledger/internal/contracts"
	"policyledger/internal/cryptoutil"
	"policyledger/internal/policy"
)

// Header is a block's header per §3: monotonic index, wall-clock timestamp,
// hex SHA-256 of the previous block ("0" for genesis), and the PoW nonce.
type Header struct {
	Index        int64     `json:"index"`
	Timestamp    time.Time `json:"timestamp"`
	PreviousHash string    `json:"previous_hash"`
	Proof        uint64    `json:"proof"`
}

// Body is a block's body per §3.
type Body struct {
	ResourcePolicies map[string]policy.Policy            `json:"resource_policies"`
	IdentityPolicies map[string]map[string]policy.Policy `json:"identity_policies"`
	ContractHeader   []contracts.ContractHeader           `json:"contract_header"`
	Events           []contracts.EventRow                 `json:"events"`
}

// NewEmptyBody returns a Body with all maps/slices initialized.
func NewEmptyBody() Body {
	return Body{
		ResourcePolicies: make(map[string]policy.Policy),
		IdentityPolicies: make(map[string]map[string]policy.Policy),
		ContractHeader:   nil,
		Events:           nil,
	}
}

// Block is a header + body pair, plus a mutex guarding in-place contract
// execution while it is a mining candidate (§5: no other mutation is
// permitted while a candidate is being extended).
type Block struct {
	Header Header
	Body   Body

	mu sync.Mutex
}

// Hash computes the block's content hash: sha256_hex of the header fields
// concatenated with the body's canonical bytes. Used as the previous_hash of
// the next block (invariant #1).
func (b *Block) Hash() (string, error) {
	cb, err := b.Body.CanonicalBytes()
	if err != nil {
		return "", err
	}
	head := fmt.Sprintf("%d|%s|%s|%d", b.Header.Index, b.Header.Timestamp.UTC().Format(time.RFC3339Nano), b.Header.PreviousHash, b.Header.Proof)
	return cryptoutil.Sha256Hex(append([]byte(head), cb...)), nil
}

// DeepCopyBody returns an independent copy of a body, used when constructing
// a mining candidate from the chain head (§4.5 step 3: "deep copy; policies
// start empty").
func DeepCopyBody(src Body) Body {
	out := NewEmptyBody()
	out.ContractHeader = append([]contracts.ContractHeader(nil), src.ContractHeader...)
	out.Events = append([]contracts.EventRow(nil), src.Events...)
	return out
}

// FindContract implements contracts.BlockHandle: it searches this block's
// own contract header table, never the full chain (§4.2).
func (b *Block) FindContract(name string) (contracts.ContractHeader, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return contracts.Lookup(b.Body.ContractHeader, name)
}

// PutResourcePolicy implements contracts.BlockHandle.
func (b *Block) PutResourcePolicy(p policy.Policy) error {
	if p.Kind != policy.KindResource {
		return fmt.Errorf("ledger: policy %s is not a resource policy", p.ID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Body.ResourcePolicies[p.ID] = p
	return nil
}

// RemoveResourcePolicy implements contracts.BlockHandle.
func (b *Block) RemoveResourcePolicy(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Body.ResourcePolicies, id)
	return nil
}

// PutIdentityPolicy implements contracts.BlockHandle.
func (b *Block) PutIdentityPolicy(principal string, p policy.Policy) error {
	if p.Kind != policy.KindIdentity {
		return fmt.Errorf("ledger: policy %s is not an identity policy", p.ID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Body.IdentityPolicies[principal] == nil {
		b.Body.IdentityPolicies[principal] = make(map[string]policy.Policy)
	}
	b.Body.IdentityPolicies[principal][p.ID] = p
	return nil
}

// RemoveIdentityPolicy implements contracts.BlockHandle.
func (b *Block) RemoveIdentityPolicy(principal, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.Body.IdentityPolicies[principal]; ok {
		delete(m, id)
	}
	return nil
}

// AppendEvent implements contracts.BlockHandle.
func (b *Block) AppendEvent(e contracts.EventRow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Body.Events = append(b.Body.Events, e)
}
