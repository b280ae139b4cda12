package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "lphook",
		Short:        "LP incentive hook tooling",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded vault callbacks through the hook",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("rpc", "", "RPC URL for factory and vault lookups (optional)")
	replayCmd.Flags().String("in", "", "input callbacks JSONL")
	replayCmd.Flags().String("out", "./data/results.jsonl", "output results JSONL")
	replayCmd.Flags().String("events", "./data/hook_events.jsonl", "output hook events JSONL")
	replayCmd.Flags().String("errors", "./data/replay_errors.jsonl", "rejected callbacks JSONL")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN for state and events")
	replayCmd.Flags().String("state-file", "", "local state file for progress tracking")
	replayCmd.Flags().String("state-name", "lphook", "state name in Postgres")
	replayCmd.Flags().String("hook", "", "hook contract address")
	replayCmd.Flags().String("factory", "", "allowed pool factory address")
	replayCmd.Flags().String("router", "", "trusted router address")
	replayCmd.Flags().String("owner", "", "hook owner address")
	replayCmd.Flags().String("vault", "", "vault address used to look up pool tokens (requires --rpc)")
	replayCmd.Flags().String("exit-fee", "", "initial exit fee in percent (default 5)")
	replayCmd.Flags().StringSlice("registered-pools", nil, "pools deployed by the factory when no RPC is used (comma-separated)")
	replayCmd.Flags().Int("checkpoint-every", 500, "callbacks between state checkpoints")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote the dynamic swap fee for a provider from replay state",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("rpc", "", "RPC URL used to read the block timestamp (optional)")
	quoteCmd.Flags().String("pg-dsn", "", "Postgres DSN holding replay state")
	quoteCmd.Flags().String("state-file", "", "local replay state file")
	quoteCmd.Flags().String("state-name", "lphook", "state name in Postgres")
	quoteCmd.Flags().String("provider", "", "liquidity provider address")
	quoteCmd.Flags().String("pool", "", "pool address")
	quoteCmd.Flags().Int("index-in", 0, "token index in")
	quoteCmd.Flags().Int("index-out", 1, "token index out")
	quoteCmd.Flags().String("static-fee", "", "static swap fee in percent")
	quoteCmd.Flags().String("at", "", "quote time (unix seconds or RFC3339)")
	quoteCmd.Flags().Uint64("block", 0, "quote at this block's timestamp (requires --rpc)")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	checkCmd := &cobra.Command{
		Use:   "check-pool",
		Short: "Check whether a pool may register with the hook",
		RunE:  runCheck,
	}

	checkCmd.Flags().String("rpc", "", "RPC URL")
	checkCmd.Flags().String("factory", "", "allowed pool factory address")
	checkCmd.Flags().String("pool", "", "pool address")
	checkCmd.Flags().String("vault", "", "vault address used to list pool tokens (optional)")
	checkCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(checkCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
