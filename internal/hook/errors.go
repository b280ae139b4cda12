package hook

import (
	"errors"

	"lpIncentive/internal/fixedpoint"
	"lpIncentive/internal/guard"
	"lpIncentive/internal/ledger"
)

var (
	ErrUntrustedRouter      = guard.ErrUntrustedRouter
	ErrArithmeticOverflow   = fixedpoint.ErrArithmeticOverflow
	ErrLengthMismatch       = ledger.ErrLengthMismatch
	ErrDonationMismatch     = errors.New("donation minted shares")
	ErrPoolNotRegistered    = errors.New("pool not registered")
	ErrTokenIndexOutOfRange = errors.New("token index out of range")
	ErrNotOwner             = errors.New("caller is not the owner")
	ErrExitFeeAboveLimit    = errors.New("exit fee above limit")
)
