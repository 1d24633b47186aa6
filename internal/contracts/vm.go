package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"

	"policyledger/internal/policy"
)

// EventRow is a single append-only row of a block's events table (§3).
type EventRow struct {
	Timestamp       int64  `json:"timestamp"`
	RequesterID     string `json:"requester_id"`
	RequesterPK     string `json:"requester_pk"`
	TransactionType string `json:"transaction_type"`
}

// BlockHandle is the mutable surface a contract invocation may touch during
// mining (§4.2's "mutable reference to the candidate block"). internal/ledger's
// Block implements it; the interface lives here, not in internal/ledger, so
// that contracts never needs to import the ledger package.
type BlockHandle interface {
	FindContract(name string) (ContractHeader, error)
	PutResourcePolicy(p policy.Policy) error
	RemoveResourcePolicy(id string) error
	PutIdentityPolicy(principal string, p policy.Policy) error
	RemoveIdentityPolicy(principal, id string) error
	AppendEvent(e EventRow)
}

// Invoker executes contract bytecode against a transaction and a candidate
// block. The WASM-backed implementation below is the sandbox referenced by
// §4.2 and §9's design notes.
type Invoker interface {
	Invoke(bytecode []byte, tx policy.Policy, block BlockHandle) error
}

// WasmerInvoker runs contract bytecode inside a wasmer sandbox. Contracts
// export a deterministic `_start` entrypoint and communicate with the block
// exclusively through the host imports registered below: no host clock, no
// host randomness.
type WasmerInvoker struct {
	engine *wasmer.Engine
}

// NewWasmerInvoker builds an Invoker around a fresh wasmer engine.
func NewWasmerInvoker() *WasmerInvoker {
	return &WasmerInvoker{engine: wasmer.NewEngine()}
}

type hostCtx struct {
	mem   *wasmer.Memory
	tx    []byte
	block BlockHandle
	inv   Invoker
	err   error
}

func (w *WasmerInvoker) Invoke(bytecode []byte, tx policy.Policy, block BlockHandle) error {
	txBytes, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("%w: marshal tx: %v", ErrContractError, err)
	}

	store := wasmer.NewStore(w.engine)
	mod, err := wasmer.NewModule(store, bytecode)
	if err != nil {
		return fmt.Errorf("%w: load module: %v", ErrContractError, err)
	}

	hctx := &hostCtx{tx: txBytes, block: block, inv: w}
	imports := registerHost(store, hctx)

	instance, err := wasmer.NewInstance(mod, imports)
	if err != nil {
		return fmt.Errorf("%w: instantiate: %v", ErrContractError, err)
	}

	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return fmt.Errorf("%w: memory export missing", ErrContractError)
	}
	hctx.mem = mem

	start, err := instance.Exports.GetFunction("_start")
	if err != nil {
		return fmt.Errorf("%w: _start export missing", ErrContractError)
	}
	if _, err := start(); err != nil {
		return fmt.Errorf("%w: %v", ErrContractError, err)
	}
	if hctx.err != nil {
		return fmt.Errorf("%w: %v", ErrContractError, hctx.err)
	}
	return nil
}

func registerHost(store *wasmer.Store, h *hostCtx) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	read := func(ptr, ln int32) []byte {
		b := h.mem.Data()[ptr : ptr+ln]
		out := make([]byte, ln)
		copy(out, b)
		return out
	}
	write := func(ptr int32, data []byte) { copy(h.mem.Data()[ptr:], data) }

	i32 := func(kinds ...wasmer.ValueKind) []wasmer.ValueKind { return kinds }

	hostTxLen := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32(), i32(wasmer.I32)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(int32(len(h.tx)))}, nil
		})

	hostTxRead := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32(wasmer.I32), i32(wasmer.I32)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			dst := args[0].I32()
			write(dst, h.tx)
			return []wasmer.Value{wasmer.NewI32(int32(len(h.tx)))}, nil
		})

	putResourcePolicy := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32(wasmer.I32, wasmer.I32), i32(wasmer.I32)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			var p policy.Policy
			if err := json.Unmarshal(read(args[0].I32(), args[1].I32()), &p); err != nil {
				h.err = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			if err := h.block.PutResourcePolicy(p); err != nil {
				h.err = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		})

	putIdentityPolicy := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32), i32(wasmer.I32)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			principal := string(read(args[0].I32(), args[1].I32()))
			var p policy.Policy
			if err := json.Unmarshal(read(args[2].I32(), args[3].I32()), &p); err != nil {
				h.err = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			if err := h.block.PutIdentityPolicy(principal, p); err != nil {
				h.err = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		})

	removeResourcePolicy := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32(wasmer.I32, wasmer.I32), i32(wasmer.I32)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			id := string(read(args[0].I32(), args[1].I32()))
			if err := h.block.RemoveResourcePolicy(id); err != nil {
				h.err = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		})

	removeIdentityPolicy := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32), i32(wasmer.I32)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			principal := string(read(args[0].I32(), args[1].I32()))
			id := string(read(args[2].I32(), args[3].I32()))
			if err := h.block.RemoveIdentityPolicy(principal, id); err != nil {
				h.err = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		})

	routePolicy := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32(wasmer.I32, wasmer.I32), i32(wasmer.I32)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			var p policy.Policy
			if err := json.Unmarshal(read(args[0].I32(), args[1].I32()), &p); err != nil {
				h.err = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			var err error
			switch p.Kind {
			case policy.KindResource:
				err = h.block.PutResourcePolicy(p)
			case policy.KindIdentity:
				if p.AttachedTo == "" {
					err = fmt.Errorf("%w: identity policy %s missing attached_to", ErrContractError, p.ID)
					break
				}
				err = h.block.PutIdentityPolicy(p.AttachedTo, p)
			default:
				err = fmt.Errorf("%w: unknown policy kind %q", ErrContractError, p.Kind)
			}
			if err != nil {
				h.err = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		})

	invokeContract := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32(wasmer.I32, wasmer.I32), i32(wasmer.I32)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			name := string(read(args[0].I32(), args[1].I32()))
			header, err := h.block.FindContract(name)
			if err != nil {
				h.err = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			var tx policy.Policy
			if err := json.Unmarshal(h.tx, &tx); err != nil {
				h.err = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			if err := h.inv.Invoke(header.ContractBytecode, tx, h.block); err != nil {
				h.err = err
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		})

	imports.Register("env", map[string]wasmer.IntoExtern{
		"host_tx_len":                 hostTxLen,
		"host_tx_read":                hostTxRead,
		"host_put_resource_policy":    putResourcePolicy,
		"host_put_identity_policy":    putIdentityPolicy,
		"host_remove_resource_policy": removeResourcePolicy,
		"host_remove_identity_policy": removeIdentityPolicy,
		"host_route_policy":           routePolicy,
		"host_invoke_contract":        invokeContract,
	})
	return imports
}
