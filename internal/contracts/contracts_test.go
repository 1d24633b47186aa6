package contracts_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"policyledger/internal/contracts"
	"policyledger/internal/policy"
)

func TestNewHeaderDerivesAddress(t *testing.T) {
	h := contracts.NewHeader(0, "MAC", "desc", []byte("bytecode"))
	require.Equal(t, contracts.Address([]byte("bytecode")), h.ContractAddress)
}

func TestValidateUniqueRejectsDuplicateNames(t *testing.T) {
	a := contracts.NewHeader(0, "MAC", "", []byte("a"))
	b := contracts.NewHeader(0, "MAC", "", []byte("b"))
	err := contracts.ValidateUnique([]contracts.ContractHeader{a, b})
	require.Error(t, err)
}

func TestLookupReturnsNotFound(t *testing.T) {
	_, err := contracts.Lookup(nil, "MAC")
	require.True(t, errors.Is(err, contracts.ErrContractNotFound))
}

func TestManagerPauseBlocksInvocation(t *testing.T) {
	m := contracts.NewManager()
	require.NoError(t, m.EnsureNotPaused("addr-1"))
	m.Pause("addr-1")
	require.Error(t, m.EnsureNotPaused("addr-1"))
	m.Unpause("addr-1")
	require.NoError(t, m.EnsureNotPaused("addr-1"))
}

func TestManagerOwnership(t *testing.T) {
	m := contracts.NewManager()
	require.Equal(t, "", m.OwnerOf("addr-1"))
	m.TransferOwnership("addr-1", "alice")
	require.Equal(t, "alice", m.OwnerOf("addr-1"))
}

// TestWasmerInvokerRoutesResourcePolicy compiles the genesis MAC fixture and
// runs it against a fake block handle, skipping when wat2wasm is not on
// PATH.
func TestWasmerInvokerRoutesResourcePolicy(t *testing.T) {
	dir := t.TempDir()
	bytecode, err := contracts.CompileWAT("testdata/mac.wat", dir)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			t.Skip("wat2wasm not installed")
		}
		require.NoError(t, err)
	}

	inv := contracts.NewWasmerInvoker()
	handle := &fakeBlock{resources: map[string]policy.Policy{}}
	tx := policy.Policy{ID: "p1", Kind: policy.KindResource, Action: policy.DeltaAdd, Statements: map[string]policy.Statement{
		"s1": {Effect: policy.EffectAllow, Action: policy.StringOrSlice{"read"}, Resource: policy.StringOrSlice{"b1"}, Principal: policy.StringOrSlice{"alice"}},
	}}
	err = inv.Invoke(bytecode, tx, handle)
	require.NoError(t, err)
	require.Contains(t, handle.resources, "p1")
}

type fakeBlock struct {
	resources map[string]policy.Policy
	identity  map[string]map[string]policy.Policy
}

func (f *fakeBlock) FindContract(name string) (contracts.ContractHeader, error) {
	return contracts.ContractHeader{}, contracts.ErrContractNotFound
}

func (f *fakeBlock) PutResourcePolicy(p policy.Policy) error {
	f.resources[p.ID] = p
	return nil
}

func (f *fakeBlock) RemoveResourcePolicy(id string) error {
	delete(f.resources, id)
	return nil
}

func (f *fakeBlock) PutIdentityPolicy(principal string, p policy.Policy) error {
	if f.identity == nil {
		f.identity = make(map[string]map[string]policy.Policy)
	}
	if f.identity[principal] == nil {
		f.identity[principal] = make(map[string]policy.Policy)
	}
	f.identity[principal][p.ID] = p
	return nil
}

func (f *fakeBlock) RemoveIdentityPolicy(principal, id string) error {
	if m, ok := f.identity[principal]; ok {
		delete(m, id)
	}
	return nil
}

func (f *fakeBlock) AppendEvent(e contracts.EventRow) {}

func TestCompileWATReadsPrecompiledWasm(t *testing.T) {
	dir := t.TempDir()
	wasmPath := filepath.Join(dir, "fixture.wasm")
	require.NoError(t, os.WriteFile(wasmPath, []byte("\x00asm"), 0o644))
	out, err := contracts.CompileWAT(wasmPath, dir)
	require.NoError(t, err)
	require.Equal(t, []byte("\x00asm"), out)
}
