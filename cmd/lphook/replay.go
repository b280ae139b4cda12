package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpIncentive/internal/chain"
	"lpIncentive/internal/config"
	"lpIncentive/internal/fixedpoint"
	"lpIncentive/internal/guard"
	"lpIncentive/internal/replay"
	"lpIncentive/internal/storage"
	"lpIncentive/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" || cfg.Events == "" || cfg.Errors == "" {
		return fmt.Errorf("out, events and errors paths are required")
	}

	addrs, err := parseRoles(cfg)
	if err != nil {
		return err
	}

	var exitFee *uint256.Int
	if cfg.ExitFee != "" {
		exitFee, err = fixedpoint.ParsePercent(cfg.ExitFee)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		inspector guard.FactoryInspector
		tokens    replay.TokenSource
		decimals  replay.DecimalsSource
	)
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()

		chainID, err := chainClient.GetChainID(ctx)
		if err != nil {
			return fmt.Errorf("get chain id: %w", err)
		}
		logger.Info("rpc connected", zap.String("chain_id", chainID.String()))

		inspector = chain.NewFactoryInspector(chainClient, addrs.factory)
		decimals = chain.NewTokenReader(chainClient)
		if cfg.Vault != "" {
			vaultAddr, err := replay.ParseAddress("vault", cfg.Vault)
			if err != nil {
				return err
			}
			tokens = chain.NewVaultReader(chainClient, vaultAddr)
		}
	} else {
		pools, err := replay.ParseAddresses(cfg.RegisteredPools)
		if err != nil {
			return err
		}
		inspector = guard.NewStaticInspector(pools)
	}

	sink := storage.Multi{storage.NewJsonlStorage(cfg.Events)}
	var state replay.StateStore
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = append(sink, store)
		state = &replay.DBStateStore{Store: store, Name: cfg.StateName}
	} else if cfg.StateFile != "" {
		state = &replay.FileStateStore{Path: cfg.StateFile}
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	resuming := state != nil
	outWriter, err := storage.OpenJSONL(cfg.Out, resuming)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.OpenJSONL(cfg.Errors, resuming)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	runner := replay.NewRunner(replay.RunConfig{
		HookAddress:       addrs.hook,
		Owner:             addrs.owner,
		Factory:           addrs.factory,
		Router:            addrs.router,
		ExitFeePercentage: exitFee,
		CheckpointEvery:   cfg.CheckpointEvery,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, inspector, tokens, sink, state, logger)
	if decimals != nil {
		runner.WithDecimals(decimals)
	}

	logger.Info("replay start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("events", cfg.Events),
		zap.String("errors", cfg.Errors),
		zap.String("hook", addrs.hook.Hex()),
		zap.String("factory", addrs.factory.Hex()),
		zap.String("router", addrs.router.Hex()),
		zap.Bool("rpc", cfg.RPCURL != ""),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.String("state_file", cfg.StateFile),
	)

	_, err = runner.Run(ctx, inputFile, outWriter, errWriter)
	return err
}

type roles struct {
	hook    common.Address
	factory common.Address
	router  common.Address
	owner   common.Address
}

func parseRoles(cfg config.ReplayConfig) (roles, error) {
	var (
		out roles
		err error
	)
	if out.hook, err = replay.ParseAddress("hook", cfg.Hook); err != nil {
		return roles{}, err
	}
	if out.factory, err = replay.ParseAddress("factory", cfg.Factory); err != nil {
		return roles{}, err
	}
	if out.router, err = replay.ParseAddress("router", cfg.Router); err != nil {
		return roles{}, err
	}
	if out.owner, err = replay.ParseAddress("owner", cfg.Owner); err != nil {
		return roles{}, err
	}
	return out, nil
}
