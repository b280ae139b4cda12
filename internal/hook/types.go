package hook

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Vault is the subset of the host vault the hook calls back into.
type Vault interface {
	PoolTokens(ctx context.Context, pool common.Address) ([]common.Address, error)
	// Donate adds amounts to the pool balances without minting shares and returns the shares
	// minted, which must be zero.
	Donate(ctx context.Context, pool common.Address, amounts []*uint256.Int) (*uint256.Int, error)
}

// SenderResolver maps the calling router to the account that initiated the operation.
type SenderResolver interface {
	Sender(ctx context.Context, router common.Address) (common.Address, error)
}

// Clock supplies the current block timestamp in unix seconds.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }

// SystemClock reads wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// HookFlags lists the vault callbacks the hook implements.
type HookFlags struct {
	EnableHookAdjustedAmounts       bool `json:"enable_hook_adjusted_amounts"`
	ShouldCallAfterAddLiquidity     bool `json:"should_call_after_add_liquidity"`
	ShouldCallAfterRemoveLiquidity  bool `json:"should_call_after_remove_liquidity"`
	ShouldCallComputeDynamicSwapFee bool `json:"should_call_compute_dynamic_swap_fee"`
}

type AddLiquidityKind uint8

const (
	AddLiquidityProportional AddLiquidityKind = iota
	AddLiquidityUnbalanced
	AddLiquiditySingleTokenExactOut
	AddLiquidityDonation
	AddLiquidityCustom
)

type RemoveLiquidityKind uint8

const (
	RemoveLiquidityProportional RemoveLiquidityKind = iota
	RemoveLiquiditySingleTokenExactIn
	RemoveLiquiditySingleTokenExactOut
	RemoveLiquidityCustom
)

type SwapKind uint8

const (
	SwapExactIn SwapKind = iota
	SwapExactOut
)

type TokenConfig struct {
	Token common.Address
}

type LiquidityManagement struct {
	DisableUnbalancedLiquidity  bool
	EnableAddLiquidityCustom    bool
	EnableRemoveLiquidityCustom bool
	EnableDonation              bool
}

// Message is one of the four vault callbacks: RegisterMsg, AfterAddMsg, AfterRemoveMsg or
// SwapFeeQueryMsg.
type Message interface {
	isMessage()
}

type RegisterMsg struct {
	Factory             common.Address
	Pool                common.Address
	TokenConfig         []TokenConfig
	LiquidityManagement LiquidityManagement
}

type AfterAddMsg struct {
	Router            common.Address
	Pool              common.Address
	Kind              AddLiquidityKind
	AmountsInScaled18 []*uint256.Int
	AmountsInRaw      []*uint256.Int
	BPTAmountOut      *uint256.Int
	Balances          []*uint256.Int
	UserData          []byte
}

type AfterRemoveMsg struct {
	Router             common.Address
	Pool               common.Address
	Kind               RemoveLiquidityKind
	BPTAmountIn        *uint256.Int
	AmountsOutScaled18 []*uint256.Int
	AmountsOutRaw      []*uint256.Int
	Balances           []*uint256.Int
	UserData           []byte
}

type SwapFeeQueryMsg struct {
	Router              common.Address
	Pool                common.Address
	Kind                SwapKind
	AmountGivenScaled18 *uint256.Int
	Balances            []*uint256.Int
	IndexIn             int
	IndexOut            int
	StaticFeePercentage *uint256.Int
	UserData            []byte
}

func (RegisterMsg) isMessage()     {}
func (AfterAddMsg) isMessage()     {}
func (AfterRemoveMsg) isMessage()  {}
func (SwapFeeQueryMsg) isMessage() {}

// Response is the hook's answer to a dispatched message.
type Response struct {
	Handled       bool
	Accepted      bool
	AmountsRaw    []*uint256.Int
	FeePercentage *uint256.Int
}
