// Package canonicaljson provides the single serialization routine §6
// requires to be shared by block hashing and signed-message verification:
// deterministic, sorted-key, whitespace-free JSON. encoding/json already
// sorts map[string]V keys and emits no insignificant whitespace, so this is
// a thin, explicitly-named wrapper rather than a hand-rolled encoder.
package canonicaljson

import (
	"bytes"
	"encoding/json"
)

// Marshal renders v as canonical JSON bytes.
func Marshal(v any) ([]byte, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Compact(&out, buf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
