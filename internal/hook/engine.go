package hook

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"lpIncentive/internal/fixedpoint"
	"lpIncentive/internal/guard"
	"lpIncentive/internal/ledger"
)

// Config holds the hook's identity and administrative settings.
type Config struct {
	HookAddress       common.Address
	Owner             common.Address
	ExitFeePercentage *uint256.Int
}

// Deps are the collaborators the engine calls.
type Deps struct {
	Guard    *guard.Guard
	Ledger   *ledger.Ledger
	Vault    Vault
	Resolver SenderResolver
	Clock    Clock
	Events   EventSink
}

// Engine is the LP incentive hook: it tracks supplied liquidity, charges exit fees on early
// withdrawals and discounts swap fees for locked providers.
type Engine struct {
	mu sync.Mutex

	hookAddress common.Address
	owner       common.Address
	exitFee     *uint256.Int
	pools       map[common.Address]struct{}

	guard    *guard.Guard
	ledger   *ledger.Ledger
	vault    Vault
	resolver SenderResolver
	clock    Clock
	events   EventSink
	logger   *zap.Logger
}

func New(cfg Config, deps Deps, logger *zap.Logger) (*Engine, error) {
	if deps.Guard == nil {
		return nil, fmt.Errorf("guard is nil")
	}
	if deps.Vault == nil {
		return nil, fmt.Errorf("vault is nil")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("sender resolver is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.New()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Events == nil {
		deps.Events = discardSink{}
	}

	exitFee := DefaultExitFeePercentage.Clone()
	if cfg.ExitFeePercentage != nil {
		if cfg.ExitFeePercentage.Gt(MaxExitFeePercentage) {
			return nil, fmt.Errorf("%w: %s%%", ErrExitFeeAboveLimit, fixedpoint.Percent(cfg.ExitFeePercentage))
		}
		exitFee = cfg.ExitFeePercentage.Clone()
	}

	return &Engine{
		hookAddress: cfg.HookAddress,
		owner:       cfg.Owner,
		exitFee:     exitFee,
		pools:       make(map[common.Address]struct{}),
		guard:       deps.Guard,
		ledger:      deps.Ledger,
		vault:       deps.Vault,
		resolver:    deps.Resolver,
		clock:       deps.Clock,
		events:      deps.Events,
		logger:      logger,
	}, nil
}

// HookFlags reports the callbacks the vault must invoke.
func (e *Engine) HookFlags() HookFlags {
	return HookFlags{
		EnableHookAdjustedAmounts:       true,
		ShouldCallAfterAddLiquidity:     true,
		ShouldCallAfterRemoveLiquidity:  true,
		ShouldCallComputeDynamicSwapFee: true,
	}
}

func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// ExitFeePercentage returns the current exit fee as an 18-decimal fraction.
func (e *Engine) ExitFeePercentage() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exitFee.Clone()
}

// SetExitFeePercentage changes the exit fee. Only the owner may call it.
func (e *Engine) SetExitFeePercentage(caller common.Address, pct *uint256.Int) error {
	if pct == nil {
		return fmt.Errorf("exit fee percentage is nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller.Hex())
	}
	if pct.Gt(MaxExitFeePercentage) {
		return fmt.Errorf("%w: %s%%", ErrExitFeeAboveLimit, fixedpoint.Percent(pct))
	}

	event, err := encodeExitFeePercentageChanged(e.hookAddress, pct, e.clock.Now())
	if err != nil {
		return err
	}
	e.exitFee = pct.Clone()
	e.events.Emit(event)

	e.logger.Info("exit fee percentage changed",
		zap.String("hook", e.hookAddress.Hex()),
		zap.String("exit_fee_pct", fixedpoint.Percent(pct).String()),
	)
	return nil
}

// RegisteredPools returns the pools accepted by OnRegister, sorted by address.
func (e *Engine) RegisteredPools() []common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]common.Address, 0, len(e.pools))
	for pool := range e.pools {
		out = append(out, pool)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}

// RestorePools marks pools as registered without re-running the registration check. It is
// meant for hosts reloading persisted state.
func (e *Engine) RestorePools(pools []common.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, pool := range pools {
		e.pools[pool] = struct{}{}
	}
}

func (e *Engine) requireRegistered(pool common.Address) error {
	if _, ok := e.pools[pool]; !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotRegistered, pool.Hex())
	}
	return nil
}
