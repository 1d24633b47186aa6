package ledger

import (
	"encoding/json"
	"fmt"
)

// CreateBlockchainFromRequest parses and schema-validates a full chain
// received over the wire (consensus fetch or /add-block-chain style bulk
// import), verifies block 0 stands alone, checks every subsequent block
// against IsBlockValid, and on success atomically swaps the internal chain
// (§4.6). On any failure it returns an error and leaves the chain
// untouched.
func (c *Chain) CreateBlockchainFromRequest(raw []json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty chain", ErrSchemaInvalid)
	}

	parsed := make([]*Block, 0, len(raw))
	for i, blockJSON := range raw {
		b := &Block{}
		if err := json.Unmarshal(blockJSON, b); err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrSchemaInvalid, i, err)
		}
		parsed = append(parsed, b)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, b := range parsed {
		if i == 0 {
			continue
		}
		if err := IsBlockValid(parsed[i-1], b, c.difficulty); err != nil {
			return err
		}
	}
	c.blocks = parsed
	return nil
}

// Snapshot renders the whole chain plus difficulty, the wire shape for
// GET / and for consensus's per-peer chain fetch.
func (c *Chain) Snapshot() ([]json.RawMessage, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]json.RawMessage, 0, len(c.blocks))
	for _, b := range c.blocks {
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, raw)
	}
	return out, c.difficulty, nil
}
