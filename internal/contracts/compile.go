package contracts

import (
	"os"
	"os/exec"
	"path/filepath"
)

// CompileWAT turns a WebAssembly text source into a deterministic byte blob
// via the offline `wat2wasm` tool. Contracts are always supplied as
// already-compiled bytecode on the wire; this helper exists for genesis
// seeding and tests that need to produce that bytecode from a checked-in
// .wat source.
func CompileWAT(srcPath, outDir string) ([]byte, error) {
	if filepath.Ext(srcPath) == ".wasm" {
		return os.ReadFile(srcPath)
	}
	out := filepath.Join(outDir, filepath.Base(srcPath)+".wasm")
	cmd := exec.Command("wat2wasm", "-o", out, srcPath)
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}
