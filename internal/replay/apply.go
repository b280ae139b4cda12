package replay

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"lpIncentive/internal/fixedpoint"
	"lpIncentive/internal/hook"
	"lpIncentive/internal/model"
)

func (r *Runner) apply(ctx context.Context, rec model.CallbackRecord) (model.CallbackResult, error) {
	r.clock.set(rec.Timestamp)
	r.sender.set(common.Address{}, false)
	if rec.Sender != "" {
		sender, err := ParseAddress("sender", rec.Sender)
		if err != nil {
			return model.CallbackResult{}, err
		}
		r.sender.set(sender, true)
	}

	result := model.CallbackResult{
		Seq:       rec.Seq,
		Kind:      rec.Kind,
		Timestamp: rec.Timestamp,
		Pool:      rec.Pool,
		Provider:  rec.Sender,
	}

	var err error
	switch rec.Kind {
	case model.KindRegister:
		err = r.applyRegister(ctx, rec, &result)
	case model.KindAfterAdd:
		err = r.applyAdd(ctx, rec, &result)
	case model.KindAfterRemove:
		err = r.applyRemove(ctx, rec, &result)
	case model.KindSwapFee:
		err = r.applySwapFee(ctx, rec, &result)
	case model.KindSetExitFee:
		err = r.applySetExitFee(rec, &result)
	default:
		err = fmt.Errorf("unknown callback kind %q", rec.Kind)
	}
	return result, err
}

func (r *Runner) applyRegister(ctx context.Context, rec model.CallbackRecord, result *model.CallbackResult) error {
	pool, err := ParseAddress("pool", rec.Pool)
	if err != nil {
		return err
	}
	factory, err := ParseAddress("factory", rec.Factory)
	if err != nil {
		return err
	}

	tokens, err := ParseAddresses(rec.Tokens)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		if r.tokens == nil {
			return fmt.Errorf("pool %s: no tokens recorded and no token source", pool.Hex())
		}
		tokens, err = r.poolTokensWithRetry(ctx, pool)
		if err != nil {
			return fmt.Errorf("pool tokens %s: %w", pool.Hex(), err)
		}
	}
	known := r.vault.HasPool(pool)
	if err := r.vault.RegisterPool(pool, tokens); err != nil {
		return err
	}

	configs := make([]hook.TokenConfig, len(tokens))
	for i, token := range tokens {
		configs[i] = hook.TokenConfig{Token: token}
	}
	resp, err := r.engine.Dispatch(ctx, hook.RegisterMsg{
		Factory:             factory,
		Pool:                pool,
		TokenConfig:         configs,
		LiquidityManagement: hook.LiquidityManagement{EnableDonation: rec.EnableDonation},
	})
	if (err != nil || !resp.Accepted) && !known {
		r.vault.DropPool(pool)
	}
	if err != nil {
		return err
	}
	result.Accepted = resp.Accepted
	return nil
}

func (r *Runner) applyAdd(ctx context.Context, rec model.CallbackRecord, result *model.CallbackResult) error {
	router, pool, scaled, raw, err := r.parseLiquidity(ctx, rec)
	if err != nil {
		return err
	}

	if err := r.vault.AddLiquidity(pool, raw); err != nil {
		return err
	}
	resp, err := r.engine.Dispatch(ctx, hook.AfterAddMsg{
		Router:            router,
		Pool:              pool,
		AmountsInScaled18: scaled,
		AmountsInRaw:      raw,
		Balances:          r.vault.Balances(pool),
	})
	if err != nil {
		if rbErr := r.vault.RemoveLiquidity(pool, raw); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	result.Accepted = true
	result.AmountsRaw = formatAmounts(resp.AmountsRaw)
	return nil
}

// applyRemove pays the raw amounts out of the vault before the hook runs; the hook donates
// the exit fee back, so the pool ends up short by exactly the adjusted amounts.
func (r *Runner) applyRemove(ctx context.Context, rec model.CallbackRecord, result *model.CallbackResult) error {
	router, pool, scaled, raw, err := r.parseLiquidity(ctx, rec)
	if err != nil {
		return err
	}

	if err := r.vault.RemoveLiquidity(pool, raw); err != nil {
		return err
	}
	resp, err := r.engine.Dispatch(ctx, hook.AfterRemoveMsg{
		Router:             router,
		Pool:               pool,
		AmountsOutScaled18: scaled,
		AmountsOutRaw:      raw,
		Balances:           r.vault.Balances(pool),
	})
	if err != nil {
		if rbErr := r.vault.AddLiquidity(pool, raw); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	result.Accepted = true
	result.AmountsRaw = formatAmounts(resp.AmountsRaw)
	return nil
}

func (r *Runner) applySwapFee(ctx context.Context, rec model.CallbackRecord, result *model.CallbackResult) error {
	router, err := ParseAddress("router", rec.Router)
	if err != nil {
		return err
	}
	pool, err := ParseAddress("pool", rec.Pool)
	if err != nil {
		return err
	}
	static, err := ParseAmount(rec.StaticFee)
	if err != nil {
		return fmt.Errorf("static fee: %w", err)
	}

	resp, err := r.engine.Dispatch(ctx, hook.SwapFeeQueryMsg{
		Router:              router,
		Pool:                pool,
		Balances:            r.vault.Balances(pool),
		IndexIn:             rec.IndexIn,
		IndexOut:            rec.IndexOut,
		StaticFeePercentage: static,
	})
	if err != nil {
		return err
	}

	result.Accepted = true
	result.FeePercentage = resp.FeePercentage.Dec()
	return nil
}

func (r *Runner) applySetExitFee(rec model.CallbackRecord, result *model.CallbackResult) error {
	caller, err := ParseAddress("sender", rec.Sender)
	if err != nil {
		return err
	}
	pct, err := ParseAmount(rec.ExitFee)
	if err != nil {
		return fmt.Errorf("exit fee: %w", err)
	}
	if err := r.engine.SetExitFeePercentage(caller, pct); err != nil {
		return err
	}

	result.Accepted = true
	result.FeePercentage = pct.Dec()
	return nil
}

// parseLiquidity reads the fields shared by add and remove records. Raw amounts default to the
// scaled ones when absent; scaled amounts are derived from raw ones and token decimals when absent.
func (r *Runner) parseLiquidity(ctx context.Context, rec model.CallbackRecord) (common.Address, common.Address, []*uint256.Int, []*uint256.Int, error) {
	var none common.Address
	router, err := ParseAddress("router", rec.Router)
	if err != nil {
		return none, none, nil, nil, err
	}
	pool, err := ParseAddress("pool", rec.Pool)
	if err != nil {
		return none, none, nil, nil, err
	}
	scaled, err := ParseAmounts(rec.AmountsScaled)
	if err != nil {
		return none, none, nil, nil, fmt.Errorf("scaled amounts: %w", err)
	}
	raw, err := ParseAmounts(rec.AmountsRaw)
	if err != nil {
		return none, none, nil, nil, fmt.Errorf("raw amounts: %w", err)
	}

	switch {
	case len(raw) == 0:
		raw = scaled
	case len(scaled) == 0:
		scaled, err = r.scale(ctx, pool, raw)
		if err != nil {
			return none, none, nil, nil, err
		}
	}
	return router, pool, scaled, raw, nil
}

func (r *Runner) scale(ctx context.Context, pool common.Address, raw []*uint256.Int) ([]*uint256.Int, error) {
	if r.decimals == nil {
		return nil, fmt.Errorf("pool %s: scaled amounts missing and no decimals source", pool.Hex())
	}
	tokens, err := r.vault.PoolTokens(ctx, pool)
	if err != nil {
		return nil, err
	}
	if len(tokens) != len(raw) {
		return nil, fmt.Errorf("pool %s: %d tokens, %d raw amounts", pool.Hex(), len(tokens), len(raw))
	}

	out := make([]*uint256.Int, len(raw))
	for i, token := range tokens {
		var decimals uint8
		err := r.retry(ctx, "token decimals fetch", []zap.Field{zap.String("token", token.Hex())}, func(ctx context.Context) error {
			var err error
			decimals, err = r.decimals.Decimals(ctx, token)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("decimals %s: %w", token.Hex(), err)
		}
		out[i], err = fixedpoint.ToScaled18(raw[i], decimals)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
