package ledger

import (
	"encoding/json"

	"policyledger/internal/canonicaljson"
	"policyledger/internal/contracts"
)

// table is the canonical columnar encoding required by §6 for tabular
// fields: an ordered list of columns (sorted lexicographically) followed by
// an ordered list of rows. Row order is preserved; contract_header and
// events are append-only sequences, never reordered.
type table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func contractHeaderTable(rows []contracts.ContractHeader) table {
	cols := []string{"contract_address", "contract_bytecode", "contract_description", "contract_name", "timestamp"}
	out := table{Columns: cols, Rows: make([][]any, 0, len(rows))}
	for _, r := range rows {
		out.Rows = append(out.Rows, []any{r.ContractAddress, r.ContractBytecode, r.ContractDescription, r.ContractName, r.Timestamp})
	}
	return out
}

func eventsTable(rows []contracts.EventRow) table {
	cols := []string{"requester_id", "requester_pk", "timestamp", "transaction_type"}
	out := table{Columns: cols, Rows: make([][]any, 0, len(rows))}
	for _, r := range rows {
		out.Rows = append(out.Rows, []any{r.RequesterID, r.RequesterPK, r.Timestamp, r.TransactionType})
	}
	return out
}

// canonicalBody is the JSON shape used for hashing and signing (§6): map
// keys are sorted lexicographically by Go's encoding/json for string-keyed
// maps, and no insignificant whitespace is emitted since json.Marshal is
// already compact. Nested identity policies are encoded the same way, one
// level deeper.
type canonicalBody struct {
	ResourcePolicies map[string]json.RawMessage            `json:"resource_policies"`
	IdentityPolicies map[string]map[string]json.RawMessage `json:"identity_policies"`
	ContractHeader   table                                  `json:"contract_header"`
	Events           table                                  `json:"events"`
}

// CanonicalBytes renders body as the deterministic, sorted-key, whitespace-free
// serialization used both for the PoW digest and for signed-message
// canonicalization (§6: "the same function is used for block hashing and
// signed message verification").
func (b Body) CanonicalBytes() ([]byte, error) {
	cb := canonicalBody{
		ResourcePolicies: make(map[string]json.RawMessage, len(b.ResourcePolicies)),
		IdentityPolicies: make(map[string]map[string]json.RawMessage, len(b.IdentityPolicies)),
		ContractHeader:   contractHeaderTable(b.ContractHeader),
		Events:           eventsTable(b.Events),
	}
	for id, p := range b.ResourcePolicies {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		cb.ResourcePolicies[id] = raw
	}
	for principal, byID := range b.IdentityPolicies {
		inner := make(map[string]json.RawMessage, len(byID))
		for id, p := range byID {
			raw, err := json.Marshal(p)
			if err != nil {
				return nil, err
			}
			inner[id] = raw
		}
		cb.IdentityPolicies[principal] = inner
	}
	return canonicaljson.Marshal(cb)
}
