package hook

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"lpIncentive/internal/fixedpoint"
	"lpIncentive/internal/model"
)

// OnRegister decides whether a pool may attach the hook. A refusal is (false, nil).
func (e *Engine) OnRegister(ctx context.Context, msg RegisterMsg) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !msg.LiquidityManagement.EnableDonation {
		e.logger.Info("registration refused: donation disabled", zap.String("pool", msg.Pool.Hex()))
		return false, nil
	}

	ok, err := e.guard.AuthorizeRegistration(ctx, msg.Factory, msg.Pool)
	if err != nil {
		return false, err
	}
	if !ok {
		e.logger.Info("registration refused",
			zap.String("pool", msg.Pool.Hex()),
			zap.String("factory", msg.Factory.Hex()),
		)
		return false, nil
	}

	e.pools[msg.Pool] = struct{}{}
	e.logger.Info("pool registered",
		zap.String("pool", msg.Pool.Hex()),
		zap.String("factory", msg.Factory.Hex()),
		zap.Int("tokens", len(msg.TokenConfig)),
	)
	return true, nil
}

// OnAfterAddLiquidity records the deposit for the initiating provider and returns the raw
// amounts unchanged.
func (e *Engine) OnAfterAddLiquidity(ctx context.Context, msg AfterAddMsg) ([]*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard.AuthorizeCaller(msg.Router); err != nil {
		return nil, err
	}
	if err := e.requireRegistered(msg.Pool); err != nil {
		return nil, err
	}
	tokens, err := e.vault.PoolTokens(ctx, msg.Pool)
	if err != nil {
		return nil, fmt.Errorf("pool tokens %s: %w", msg.Pool.Hex(), err)
	}
	if len(tokens) != len(msg.AmountsInRaw) || len(tokens) != len(msg.AmountsInScaled18) {
		return nil, fmt.Errorf("after add %s: %w: tokens %d, scaled %d, raw %d",
			msg.Pool.Hex(), ErrLengthMismatch, len(tokens), len(msg.AmountsInScaled18), len(msg.AmountsInRaw))
	}

	provider, err := e.resolver.Sender(ctx, msg.Router)
	if err != nil {
		return nil, fmt.Errorf("resolve sender: %w", err)
	}

	now := e.clock.Now()
	if err := e.ledger.RecordDeposit(msg.Pool, provider, msg.AmountsInScaled18, now); err != nil {
		return nil, err
	}

	e.logger.Debug("deposit recorded",
		zap.String("pool", msg.Pool.Hex()),
		zap.String("provider", provider.Hex()),
		zap.Uint64("deposit_clock", e.ledger.DepositClock(provider)),
	)
	return cloneAmounts(msg.AmountsInRaw), nil
}

// OnAfterRemoveLiquidity charges the exit fee on early withdrawals, donates it back to the pool
// and records the withdrawal. Nothing is committed unless the donation succeeds.
func (e *Engine) OnAfterRemoveLiquidity(ctx context.Context, msg AfterRemoveMsg) ([]*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard.AuthorizeCaller(msg.Router); err != nil {
		return nil, err
	}
	if err := e.requireRegistered(msg.Pool); err != nil {
		return nil, err
	}

	tokens, err := e.vault.PoolTokens(ctx, msg.Pool)
	if err != nil {
		return nil, fmt.Errorf("pool tokens %s: %w", msg.Pool.Hex(), err)
	}
	if len(tokens) != len(msg.AmountsOutRaw) || len(tokens) != len(msg.AmountsOutScaled18) {
		return nil, fmt.Errorf("after remove %s: %w: tokens %d, scaled %d, raw %d",
			msg.Pool.Hex(), ErrLengthMismatch, len(tokens), len(msg.AmountsOutScaled18), len(msg.AmountsOutRaw))
	}

	provider, err := e.resolver.Sender(ctx, msg.Router)
	if err != nil {
		return nil, fmt.Errorf("resolve sender: %w", err)
	}
	if entries := e.ledger.Entries(msg.Pool, provider); entries != nil && len(entries) != len(tokens) {
		return nil, fmt.Errorf("after remove %s: %w: ledger %d, tokens %d", msg.Pool.Hex(), ErrLengthMismatch, len(entries), len(tokens))
	}

	now := e.clock.Now()
	clock := e.ledger.DepositClock(provider)

	var fee ExitFee
	if e.exitFee.IsZero() {
		fee = ExitFee{AmountsOut: cloneAmounts(msg.AmountsOutRaw)}
	} else {
		fee, err = ComputeExitFee(msg.AmountsOutRaw, e.exitFee, clock, now)
		if err != nil {
			return nil, err
		}
	}

	var events []model.HookEvent
	if fee.Early && !e.exitFee.IsZero() {
		events = make([]model.HookEvent, 0, len(tokens))
		for i, token := range tokens {
			event, err := encodeExitFeeCharged(e.hookAddress, msg.Pool, token, fee.Fees[i], now)
			if err != nil {
				return nil, err
			}
			events = append(events, event)
		}
	}

	if fee.Charged() {
		minted, err := e.vault.Donate(ctx, msg.Pool, fee.Fees)
		if err != nil {
			return nil, fmt.Errorf("donate exit fee to %s: %w", msg.Pool.Hex(), err)
		}
		if minted != nil && !minted.IsZero() {
			return nil, fmt.Errorf("%w: pool %s minted %s", ErrDonationMismatch, msg.Pool.Hex(), minted.Dec())
		}
	}

	allWithdrawn, err := e.ledger.RecordWithdrawal(msg.Pool, provider, msg.AmountsOutScaled18)
	if err != nil {
		return nil, err
	}
	if allWithdrawn {
		e.ledger.ClearDepositClock(provider)
	}

	for _, event := range events {
		e.events.Emit(event)
	}

	if fee.Charged() {
		e.logger.Info("exit fee charged",
			zap.String("pool", msg.Pool.Hex()),
			zap.String("provider", provider.Hex()),
			zap.String("exit_fee_pct", fixedpoint.Percent(e.exitFee).String()),
			zap.String("total_donation", fee.Total.Dec()),
			zap.Uint64("held_seconds", elapsedSince(clock, now)),
		)
	}
	e.logger.Debug("withdrawal recorded",
		zap.String("pool", msg.Pool.Hex()),
		zap.String("provider", provider.Hex()),
		zap.Bool("position_closed", allWithdrawn),
	)

	return fee.AmountsOut, nil
}

// OnComputeDynamicSwapFee returns the swap fee for the initiating provider. It never mutates
// the ledger.
func (e *Engine) OnComputeDynamicSwapFee(ctx context.Context, msg SwapFeeQueryMsg) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard.AuthorizeCaller(msg.Router); err != nil {
		return nil, err
	}
	if err := e.requireRegistered(msg.Pool); err != nil {
		return nil, err
	}

	provider, err := e.resolver.Sender(ctx, msg.Router)
	if err != nil {
		return nil, fmt.Errorf("resolve sender: %w", err)
	}

	entries := e.ledger.Entries(msg.Pool, provider)
	clock := e.ledger.DepositClock(provider)
	fee, err := ComputeDynamicSwapFee(entries, msg.IndexIn, msg.IndexOut, msg.StaticFeePercentage, clock, e.clock.Now())
	if err != nil {
		return nil, err
	}

	e.logger.Debug("dynamic swap fee",
		zap.String("pool", msg.Pool.Hex()),
		zap.String("provider", provider.Hex()),
		zap.String("static_pct", fixedpoint.Percent(msg.StaticFeePercentage).String()),
		zap.String("effective_pct", fixedpoint.Percent(fee).String()),
	)
	return fee, nil
}

func cloneAmounts(in []*uint256.Int) []*uint256.Int {
	out := make([]*uint256.Int, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = new(uint256.Int)
			continue
		}
		out[i] = v.Clone()
	}
	return out
}
