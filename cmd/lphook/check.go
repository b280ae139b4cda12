package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpIncentive/internal/chain"
	"lpIncentive/internal/config"
	"lpIncentive/internal/guard"
	"lpIncentive/internal/replay"
)

func runCheck(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCheck(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	factory, err := replay.ParseAddress("factory", cfg.Factory)
	if err != nil {
		return err
	}
	pool, err := replay.ParseAddress("pool", cfg.Pool)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	// The trusted router plays no part in registration.
	g := guard.New(factory, common.Address{}, chain.NewFactoryInspector(chainClient, factory))
	ok, err := g.AuthorizeRegistration(ctx, factory, pool)
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("chain_id", chainID.String()),
		zap.String("factory", factory.Hex()),
		zap.String("pool", pool.Hex()),
		zap.Bool("allowed", ok),
	}
	if cfg.Vault != "" {
		vaultAddr, err := replay.ParseAddress("vault", cfg.Vault)
		if err != nil {
			return err
		}
		tokens, err := chain.NewVaultReader(chainClient, vaultAddr).PoolTokens(ctx, pool)
		if err != nil {
			return fmt.Errorf("pool tokens: %w", err)
		}
		reader := chain.NewTokenReader(chainClient)
		symbols := make([]string, 0, len(tokens))
		for _, token := range tokens {
			meta, err := reader.Meta(ctx, token)
			if err != nil {
				logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
				symbols = append(symbols, token.Hex())
				continue
			}
			symbols = append(symbols, fmt.Sprintf("%s(%d)", meta.Symbol, meta.Decimals))
		}
		fields = append(fields, zap.Strings("tokens", symbols))
	}
	logger.Info("pool check", fields...)

	fmt.Fprintf(cmd.OutOrStdout(), "pool %s allowed=%t\n", pool.Hex(), ok)
	return nil
}
