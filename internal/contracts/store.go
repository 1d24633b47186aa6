// Package contracts implements the content-addressed smart-contract store
// of §4.2: opaque bytecode blobs addressed by SHA-256, invoked through a
// deterministic sandbox with a uniform calling convention.
package contracts

import (
	"errors"
	"fmt"

	"policyledger/internal/cryptoutil"
)

// ErrContractNotFound is returned when a contract name cannot be resolved
// against a block's contract header table.
var ErrContractNotFound = errors.New("contracts: not found")

// ErrContractError wraps any error raised during invocation; mining treats
// it as fatal to the candidate block per §4.5 step 4.
var ErrContractError = errors.New("contracts: execution error")

// ContractHeader is a single row of a block's contract header table (§3).
type ContractHeader struct {
	Timestamp             int64  `json:"timestamp"`
	ContractName          string `json:"contract_name"`
	ContractAddress       string `json:"contract_address"`
	ContractDescription   string `json:"contract_description"`
	ContractBytecode      []byte `json:"contract_bytecode"`
}

// Encode is the host-provided encoding step (§4.2); the ledger treats its
// output as an opaque byte blob. For this implementation source is already
// compiled WASM and Encode is the identity function.
func Encode(source []byte) []byte {
	return source
}

// Address derives a contract's content address from its bytecode.
func Address(bytecode []byte) string {
	return cryptoutil.Sha256Hex(bytecode)
}

// NewHeader builds a ContractHeader row, deriving ContractAddress from the
// bytecode per §3's `contract_address = SHA-256(contract_bytecode)`.
func NewHeader(timestamp int64, name, description string, bytecode []byte) ContractHeader {
	return ContractHeader{
		Timestamp:           timestamp,
		ContractName:        name,
		ContractAddress:     Address(bytecode),
		ContractDescription: description,
		ContractBytecode:    bytecode,
	}
}

// ValidateUnique checks the contract_name-uniqueness invariant (#4) over a
// full contract header table.
func ValidateUnique(headers []ContractHeader) error {
	seen := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		if _, ok := seen[h.ContractName]; ok {
			return fmt.Errorf("contracts: duplicate contract_name %q", h.ContractName)
		}
		seen[h.ContractName] = struct{}{}
		if h.ContractAddress != Address(h.ContractBytecode) {
			return fmt.Errorf("contracts: address mismatch for %q", h.ContractName)
		}
	}
	return nil
}

// Lookup searches headers (a single block's contract header table, never the
// full chain) for name.
func Lookup(headers []ContractHeader, name string) (ContractHeader, error) {
	for _, h := range headers {
		if h.ContractName == name {
			return h, nil
		}
	}
	return ContractHeader{}, fmt.Errorf("%w: %s", ErrContractNotFound, name)
}
