package hook

import (
	"fmt"

	"github.com/holiman/uint256"

	"lpIncentive/internal/fixedpoint"
)

const (
	// LockupTime is the minimum age of a position before it leaves the exit fee and earns a rebate.
	LockupTime uint64 = 7 * 24 * 60 * 60

	rebateDivisor = 100
)

var (
	// DefaultExitFeePercentage is 5%.
	DefaultExitFeePercentage = uint256.NewInt(5e16)
	// MaxExitFeePercentage is 10%.
	MaxExitFeePercentage = uint256.NewInt(1e17)
)

// ExitFee is the outcome of an exit-fee computation.
type ExitFee struct {
	Early      bool
	AmountsOut []*uint256.Int
	Fees       []*uint256.Int
	Total      *uint256.Int
}

// Charged reports whether any token carries a non-zero fee.
func (f ExitFee) Charged() bool {
	return f.Total != nil && !f.Total.IsZero()
}

func elapsedSince(since, now uint64) uint64 {
	if now < since {
		return 0
	}
	return now - since
}

// ComputeExitFee applies percentage to every amount when the position is younger than LockupTime.
func ComputeExitFee(amountsOutRaw []*uint256.Int, percentage *uint256.Int, depositClock, now uint64) (ExitFee, error) {
	out := ExitFee{
		AmountsOut: make([]*uint256.Int, len(amountsOutRaw)),
		Fees:       make([]*uint256.Int, len(amountsOutRaw)),
		Total:      new(uint256.Int),
	}
	out.Early = elapsedSince(depositClock, now) < LockupTime

	for i, amount := range amountsOutRaw {
		if amount == nil {
			amount = new(uint256.Int)
		}
		if !out.Early || percentage == nil || percentage.IsZero() {
			out.AmountsOut[i] = amount.Clone()
			out.Fees[i] = new(uint256.Int)
			continue
		}

		fee, err := fixedpoint.MulDown(amount, percentage)
		if err != nil {
			return ExitFee{}, fmt.Errorf("exit fee token %d: %w", i, err)
		}
		out.Fees[i] = fee
		out.AmountsOut[i] = new(uint256.Int).Sub(amount, fee)
		if _, overflow := out.Total.AddOverflow(out.Total, fee); overflow {
			return ExitFee{}, fmt.Errorf("exit fee total: %w", ErrArithmeticOverflow)
		}
	}
	return out, nil
}

// ComputeDynamicSwapFee discounts staticFee for providers holding liquidity in the swapped pair
// past LockupTime. The discount grows with log2 of the held amount and stops at half the static fee.
func ComputeDynamicSwapFee(entries []*uint256.Int, indexIn, indexOut int, staticFee *uint256.Int, depositClock, now uint64) (*uint256.Int, error) {
	if staticFee == nil {
		return nil, fmt.Errorf("static fee is nil")
	}
	if len(entries) == 0 {
		return staticFee.Clone(), nil
	}
	if indexIn < 0 || indexIn >= len(entries) || indexOut < 0 || indexOut >= len(entries) {
		return nil, fmt.Errorf("%w: in=%d out=%d tokens=%d", ErrTokenIndexOutOfRange, indexIn, indexOut, len(entries))
	}

	lpAmount, overflow := new(uint256.Int).AddOverflow(entries[indexIn], entries[indexOut])
	if overflow {
		return nil, fmt.Errorf("lp amount: %w", ErrArithmeticOverflow)
	}
	if lpAmount.IsZero() || elapsedSince(depositClock, now) <= LockupTime {
		return staticFee.Clone(), nil
	}

	rebate, overflow := new(uint256.Int).MulOverflow(staticFee, uint256.NewInt(fixedpoint.Log2Floor(lpAmount)))
	if overflow {
		return nil, fmt.Errorf("rebate: %w", ErrArithmeticOverflow)
	}
	rebate.Div(rebate, uint256.NewInt(rebateDivisor))

	half := new(uint256.Int).Rsh(staticFee, 1)
	maxRebate := new(uint256.Int).Sub(staticFee, half)
	if rebate.Gt(maxRebate) {
		return half, nil
	}
	return new(uint256.Int).Sub(staticFee, rebate), nil
}
