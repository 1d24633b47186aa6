package ledger

import (
	"encoding/json"

	"policyledger/internal/policy"
)

// wireBlock is the JSON transfer shape for a Block (GET /, POST /add-block,
// consensus chain fetch). Block itself carries an unexported mutex and is
// never marshaled directly.
type wireBlock struct {
	Header Header `json:"header"`
	Body   Body   `json:"body"`
}

// MarshalJSON renders a Block as {header, body}.
func (b *Block) MarshalJSON() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return json.Marshal(wireBlock{Header: b.Header, Body: b.Body})
}

// UnmarshalJSON parses a Block from {header, body}.
func (b *Block) UnmarshalJSON(data []byte) error {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b.Header = w.Header
	b.Body = w.Body
	if b.Body.ResourcePolicies == nil {
		b.Body.ResourcePolicies = make(map[string]policy.Policy)
	}
	if b.Body.IdentityPolicies == nil {
		b.Body.IdentityPolicies = make(map[string]map[string]policy.Policy)
	}
	return nil
}
