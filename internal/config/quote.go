package config

import (
	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	RPCURL    string
	PGDSN     string
	StateFile string
	StateName string
	Provider  string
	Pool      string
	IndexIn   int
	IndexOut  int
	StaticFee string
	At        string
	Block     uint64
	LogLevel  string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"state-name": "lphook",
		"index-in":   0,
		"index-out":  1,
		"log-level":  "info",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		RPCURL:    v.GetString("rpc"),
		PGDSN:     v.GetString("pg-dsn"),
		StateFile: v.GetString("state-file"),
		StateName: v.GetString("state-name"),
		Provider:  v.GetString("provider"),
		Pool:      v.GetString("pool"),
		IndexIn:   v.GetInt("index-in"),
		IndexOut:  v.GetInt("index-out"),
		StaticFee: v.GetString("static-fee"),
		At:        v.GetString("at"),
		Block:     v.GetUint64("block"),
		LogLevel:  v.GetString("log-level"),
	}

	return cfg, nil
}
