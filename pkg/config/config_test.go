package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"policyledger/pkg/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	for _, key := range []string{"NODE_ROLE", "PORT", "CHAIN_DIFFICULTY", "PEERS"} {
		os.Unsetenv(key)
	}
	cfg, err := config.Load("does-not-exist.env")
	require.NoError(t, err)
	require.Equal(t, "publisher", cfg.NodeRole)
	require.Equal(t, 8000, cfg.Port)
	require.Equal(t, 4, cfg.ChainDifficulty)
	require.Empty(t, cfg.Peers)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("NODE_ROLE", "light")
	t.Setenv("PORT", "9100")
	t.Setenv("PEERS", "http://a, http://b")

	cfg, err := config.Load("does-not-exist.env")
	require.NoError(t, err)
	require.Equal(t, "light", cfg.NodeRole)
	require.Equal(t, 9100, cfg.Port)
	require.Equal(t, []string{"http://a", "http://b"}, cfg.Peers)
}

func TestLoadRejectsInvalidNodeRole(t *testing.T) {
	t.Setenv("NODE_ROLE", "seed")

	_, err := config.Load("does-not-exist.env")
	require.Error(t, err)
}
