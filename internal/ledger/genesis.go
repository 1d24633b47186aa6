package ledger

import (
	"time"

	"policyledger/internal/contracts"
)

// SeedMAC compiles the genesis MAC contract from a WebAssembly text source
// (or reads an already-compiled .wasm file) and returns the ContractHeader
// NewChain seeds block 0 with.
func SeedMAC(watOrWasmPath, buildDir string) (contracts.ContractHeader, error) {
	bytecode, err := contracts.CompileWAT(watOrWasmPath, buildDir)
	if err != nil {
		return contracts.ContractHeader{}, err
	}
	return contracts.NewHeader(time.Now().UTC().Unix(), MACContractName, "genesis MAC: routes policy deltas from transactions into the candidate block", bytecode), nil
}
