// Package config loads a policy ledger node's runtime configuration from
// environment variables, optionally overlaid from a .env file.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"policyledger/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.2.0"

// Config is the unified node configuration of §8.
type Config struct {
	NodeRole        string   `mapstructure:"node_role" json:"node_role"`
	Port            int      `mapstructure:"port" json:"port"`
	ChainDifficulty int      `mapstructure:"chain_difficulty" json:"chain_difficulty"`
	Peers           []string `mapstructure:"peers" json:"peers"`
	RSAPublicExp    int      `mapstructure:"rsa_public_exp" json:"rsa_public_exp"`
	KeySize         int      `mapstructure:"key_size" json:"key_size"`
	NonceExpMin     int      `mapstructure:"nonce_exp_min" json:"nonce_exp_min"`
	NonceExpS       int      `mapstructure:"nonce_exp_s" json:"nonce_exp_s"`
	NonceSize       int      `mapstructure:"nonce_size" json:"nonce_size"`
}

// AppConfig holds the configuration loaded by Load.
var AppConfig Config

// defaults mirror §8's stated defaults for every optional variable.
var defaults = map[string]any{
	"node_role":        "publisher",
	"port":             8000,
	"chain_difficulty": 4,
	"peers":            []string{},
	"rsa_public_exp":   65537,
	"key_size":         2048,
	"nonce_exp_min":    5,
	"nonce_exp_s":      0,
	"nonce_size":       16,
}

// envBindings maps each config key to the wire environment variable name of
// §8's table; names deliberately don't follow mapstructure's lower-snake
// derivation (PORT, not NODE_PORT), so each must be bound explicitly.
var envBindings = map[string]string{
	"node_role":        "NODE_ROLE",
	"port":             "PORT",
	"chain_difficulty": "CHAIN_DIFFICULTY",
	"peers":            "PEERS",
	"rsa_public_exp":   "RSA_PUBLIC_EXP",
	"key_size":         "KEY_SIZE",
	"nonce_exp_min":    "NONCE_EXP_MIN",
	"nonce_exp_s":      "NONCE_EXP_S",
	"nonce_size":       "NONCE_SIZE",
}

// Load reads a .env file if present (a missing file is not an error, per
// godotenv's own contract), then layers environment variables over the
// defaults above, and unmarshals the result into AppConfig.
func Load(dotenvPath string) (*Config, error) {
	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	_ = godotenv.Load(dotenvPath)

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, utils.Wrap(err, "bind env "+env)
		}
	}

	if peers := v.GetString("peers"); peers != "" {
		v.Set("peers", splitAndTrim(peers))
	}

	if err := v.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	if AppConfig.NodeRole != "publisher" && AppConfig.NodeRole != "light" {
		return nil, fmt.Errorf("config: NODE_ROLE must be one of publisher, light (got %q)", AppConfig.NodeRole)
	}
	return &AppConfig, nil
}

// splitAndTrim splits PEERS's comma-separated list into trimmed, non-empty
// base URLs.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
