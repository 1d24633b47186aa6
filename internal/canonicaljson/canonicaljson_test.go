package canonicaljson_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"policyledger/internal/canonicaljson"
)

func TestMarshalSortsMapKeys(t *testing.T) {
	v := map[string]int{"b": 2, "a": 1, "c": 3}
	out, err := canonicaljson.Marshal(v)
	require.NoError(t, err)
	require.Equal(t, `{"a":1,"b":2,"c":3}`, string(out))
}

func TestMarshalIsDeterministicAcrossCalls(t *testing.T) {
	v := struct {
		Nested map[string]string
		Name   string
	}{Nested: map[string]string{"z": "1", "a": "2"}, Name: "x"}

	first, err := canonicaljson.Marshal(v)
	require.NoError(t, err)
	second, err := canonicaljson.Marshal(v)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestMarshalProducesNoInsignificantWhitespace(t *testing.T) {
	v := map[string]any{"a": []int{1, 2, 3}}
	out, err := canonicaljson.Marshal(v)
	require.NoError(t, err)
	require.NotContains(t, string(out), " ")
	require.NotContains(t, string(out), "\n")
}
