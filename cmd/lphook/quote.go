package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpIncentive/internal/chain"
	"lpIncentive/internal/config"
	"lpIncentive/internal/fixedpoint"
	"lpIncentive/internal/hook"
	"lpIncentive/internal/ledger"
	"lpIncentive/internal/replay"
	"lpIncentive/internal/storage/postgres"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	provider, err := replay.ParseAddress("provider", cfg.Provider)
	if err != nil {
		return err
	}
	pool, err := replay.ParseAddress("pool", cfg.Pool)
	if err != nil {
		return err
	}
	if cfg.StaticFee == "" {
		return fmt.Errorf("static fee is required")
	}
	staticFee, err := fixedpoint.ParsePercent(cfg.StaticFee)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var state replay.StateStore
	switch {
	case cfg.PGDSN != "":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		state = &replay.DBStateStore{Store: store, Name: cfg.StateName}
	case cfg.StateFile != "":
		state = &replay.FileStateStore{Path: cfg.StateFile}
	default:
		return fmt.Errorf("state-file or pg-dsn is required")
	}

	snapshot, ok, err := state.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return fmt.Errorf("no replay state found")
	}

	ldg := ledger.New()
	if err := ldg.Restore(snapshot.Ledger); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}

	now, err := quoteTime(ctx, cfg)
	if err != nil {
		return err
	}

	entries := ldg.Entries(pool, provider)
	depositClock := ldg.DepositClock(provider)
	fee, err := hook.ComputeDynamicSwapFee(entries, cfg.IndexIn, cfg.IndexOut, staticFee, depositClock, now)
	if err != nil {
		return err
	}

	logger.Info("swap fee quote",
		zap.String("pool", pool.Hex()),
		zap.String("provider", provider.Hex()),
		zap.Uint64("at", now),
		zap.Uint64("deposit_clock", depositClock),
		zap.Int("tokens", len(entries)),
		zap.Uint64("last_seq", snapshot.LastSeq),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "static %s%% effective %s%%\n",
		fixedpoint.Percent(staticFee).String(),
		fixedpoint.Percent(fee).String(),
	)
	return nil
}

// quoteTime picks --at, then --block through the RPC, then the latest block, then wall-clock time.
func quoteTime(ctx context.Context, cfg config.QuoteConfig) (uint64, error) {
	if cfg.At != "" {
		ts, err := config.ParseTimestamp(cfg.At)
		if err != nil {
			return 0, fmt.Errorf("parse at: %w", err)
		}
		return ts, nil
	}
	if cfg.RPCURL == "" {
		if cfg.Block != 0 {
			return 0, fmt.Errorf("block requires rpc")
		}
		return uint64(time.Now().Unix()), nil
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return 0, fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	if cfg.Block != 0 {
		return chainClient.BlockTimestamp(ctx, cfg.Block)
	}
	return chainClient.LatestTimestamp(ctx)
}
