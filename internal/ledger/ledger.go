package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"lpIncentive/internal/fixedpoint"
)

// ErrLengthMismatch is returned when an amount vector does not match the pool's token count.
var ErrLengthMismatch = errors.New("amount vector length mismatch")

type positionKey struct {
	pool     common.Address
	provider common.Address
}

// Ledger tracks liquidity supplied per (pool, provider, token) and the deposit clock per provider.
type Ledger struct {
	mu      sync.RWMutex
	records map[positionKey][]*uint256.Int
	clocks  map[common.Address]uint64
}

func New() *Ledger {
	return &Ledger{
		records: make(map[positionKey][]*uint256.Int),
		clocks:  make(map[common.Address]uint64),
	}
}

// RecordDeposit adds amounts to the provider's record for pool and starts the deposit clock
// if no position is open. The ledger is unchanged when an error is returned.
func (l *Ledger) RecordDeposit(pool, provider common.Address, amounts []*uint256.Int, now uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := positionKey{pool: pool, provider: provider}
	current, ok := l.records[key]
	if ok && len(current) != len(amounts) {
		return fmt.Errorf("deposit %s: %w: have %d, got %d", pool.Hex(), ErrLengthMismatch, len(current), len(amounts))
	}

	next := make([]*uint256.Int, len(amounts))
	for i, amount := range amounts {
		base := new(uint256.Int)
		if ok {
			base.Set(current[i])
		}
		if amount == nil {
			next[i] = base
			continue
		}
		if _, overflow := base.AddOverflow(base, amount); overflow {
			return fmt.Errorf("deposit %s token %d: %w", pool.Hex(), i, fixedpoint.ErrArithmeticOverflow)
		}
		next[i] = base
	}

	l.records[key] = next
	if l.clocks[provider] == 0 {
		l.clocks[provider] = now
	}
	return nil
}

// RecordWithdrawal floor-subtracts amounts from the provider's record for pool. It reports
// whether every entry of that record is zero afterwards.
func (l *Ledger) RecordWithdrawal(pool, provider common.Address, amounts []*uint256.Int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := positionKey{pool: pool, provider: provider}
	current, ok := l.records[key]
	if !ok {
		return true, nil
	}
	if len(current) != len(amounts) {
		return false, fmt.Errorf("withdraw %s: %w: have %d, got %d", pool.Hex(), ErrLengthMismatch, len(current), len(amounts))
	}

	allZero := true
	for i, amount := range amounts {
		entry := current[i]
		switch {
		case amount == nil:
		case entry.Cmp(amount) <= 0:
			entry.Clear()
		default:
			entry.Sub(entry, amount)
		}
		if !entry.IsZero() {
			allZero = false
		}
	}
	return allZero, nil
}

// Entries returns a copy of the provider's record for pool, or nil if none exists.
func (l *Ledger) Entries(pool, provider common.Address) []*uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	current, ok := l.records[positionKey{pool: pool, provider: provider}]
	if !ok {
		return nil
	}
	out := make([]*uint256.Int, len(current))
	for i, entry := range current {
		out[i] = entry.Clone()
	}
	return out
}

// DepositClock returns the start of the provider's open position, zero if none.
func (l *Ledger) DepositClock(provider common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.clocks[provider]
}

// ClearDepositClock closes the provider's position.
func (l *Ledger) ClearDepositClock(provider common.Address) {
	l.mu.Lock()
	delete(l.clocks, provider)
	l.mu.Unlock()
}
