package config

import (
	"github.com/spf13/pflag"
)

// CheckConfig holds configuration for the check-pool command.
type CheckConfig struct {
	RPCURL   string
	Factory  string
	Pool     string
	Vault    string
	LogLevel string
}

// LoadCheck merges config file, environment variables, and flags into CheckConfig.
func LoadCheck(cfgFile string, flags *pflag.FlagSet) (CheckConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"log-level": "info",
	})
	if err != nil {
		return CheckConfig{}, err
	}

	cfg := CheckConfig{
		RPCURL:   v.GetString("rpc"),
		Factory:  v.GetString("factory"),
		Pool:     v.GetString("pool"),
		Vault:    v.GetString("vault"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}
