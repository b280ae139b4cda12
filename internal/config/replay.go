package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	RPCURL          string
	In              string
	Out             string
	Events          string
	Errors          string
	PGDSN           string
	StateFile       string
	StateName       string
	Hook            string
	Factory         string
	Router          string
	Owner           string
	Vault           string
	ExitFee         string
	RegisteredPools []string
	CheckpointEvery int
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":              "./data/results.jsonl",
		"events":           "./data/hook_events.jsonl",
		"errors":           "./data/replay_errors.jsonl",
		"state-name":       "lphook",
		"checkpoint-every": 500,
		"max-retries":      5,
		"retry-backoff":    500 * time.Millisecond,
		"log-level":        "info",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		RPCURL:          v.GetString("rpc"),
		In:              v.GetString("in"),
		Out:             v.GetString("out"),
		Events:          v.GetString("events"),
		Errors:          v.GetString("errors"),
		PGDSN:           v.GetString("pg-dsn"),
		StateFile:       v.GetString("state-file"),
		StateName:       v.GetString("state-name"),
		Hook:            v.GetString("hook"),
		Factory:         v.GetString("factory"),
		Router:          v.GetString("router"),
		Owner:           v.GetString("owner"),
		Vault:           v.GetString("vault"),
		ExitFee:         v.GetString("exit-fee"),
		RegisteredPools: getStringSlice(v, "registered-pools"),
		CheckpointEvery: v.GetInt("checkpoint-every"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}
