package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ErrArithmeticOverflow is returned when an intermediate value does not fit in 256 bits.
var ErrArithmeticOverflow = errors.New("arithmetic overflow")

// One is 1.0 at 18-decimal scale.
var One = uint256.NewInt(1_000_000_000_000_000_000)

var log2Shifts = [...]uint{128, 64, 32, 16, 8, 4, 2, 1}

// Log2Floor returns floor(log2(x)). Zero maps to zero; callers guard against it.
func Log2Floor(x *uint256.Int) uint64 {
	if x == nil || x.IsZero() {
		return 0
	}

	v := new(uint256.Int).Set(x)
	shifted := new(uint256.Int)
	var result uint64
	for _, shift := range log2Shifts {
		shifted.Rsh(v, shift)
		if !shifted.IsZero() {
			v.Set(shifted)
			result += uint64(shift)
		}
	}
	return result
}

// MulDown computes floor(a * b / 1e18).
func MulDown(a, b *uint256.Int) (*uint256.Int, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("mul down: nil operand")
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("mul down %s * %s: %w", a.Dec(), b.Dec(), ErrArithmeticOverflow)
	}
	return product.Div(product, One), nil
}

// Percent renders an 18-decimal fraction as a percentage (5e16 -> 5).
func Percent(value *uint256.Int) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value.ToBig(), -16)
}

// ParsePercent converts a percentage such as "5" or "2.5" into an 18-decimal fraction.
func ParsePercent(input string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(input)
	if err != nil {
		return nil, fmt.Errorf("parse percent %q: %w", input, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative percent: %s", input)
	}
	scaled := d.Shift(16)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("percent has more than 16 decimals: %s", input)
	}
	out, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("percent %s: %w", input, ErrArithmeticOverflow)
	}
	return out, nil
}

// ToScaled18 converts a raw token amount with the given decimals to 18-decimal precision.
func ToScaled18(raw *uint256.Int, decimals uint8) (*uint256.Int, error) {
	if decimals > 18 {
		return nil, fmt.Errorf("token decimals %d above 18", decimals)
	}
	factor := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(18-decimals)))
	out, overflow := new(uint256.Int).MulOverflow(raw, factor)
	if overflow {
		return nil, fmt.Errorf("scale %s by 1e%d: %w", raw.Dec(), 18-decimals, ErrArithmeticOverflow)
	}
	return out, nil
}
