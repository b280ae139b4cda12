package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrUnknownPool         = errors.New("unknown pool")
	ErrInsufficientBalance = errors.New("insufficient pool balance")
)

type poolState struct {
	tokens   []common.Address
	balances []*uint256.Int
	donated  []*uint256.Int
}

// Memory is an in-process vault that keeps pool token lists and balances. Donations grow
// balances without minting shares and do not trigger hook callbacks.
type Memory struct {
	mu    sync.RWMutex
	pools map[common.Address]*poolState
}

func NewMemory() *Memory {
	return &Memory{pools: make(map[common.Address]*poolState)}
}

// RegisterPool creates a pool with zero balances. Registering the same pool again with the
// same tokens is a no-op.
func (m *Memory) RegisterPool(pool common.Address, tokens []common.Address) error {
	if len(tokens) == 0 {
		return fmt.Errorf("pool %s: no tokens", pool.Hex())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.pools[pool]; ok {
		if !sameTokens(existing.tokens, tokens) {
			return fmt.Errorf("pool %s already registered with different tokens", pool.Hex())
		}
		return nil
	}

	state := &poolState{
		tokens:   append([]common.Address(nil), tokens...),
		balances: zeros(len(tokens)),
		donated:  zeros(len(tokens)),
	}
	m.pools[pool] = state
	return nil
}

// HasPool reports whether the pool is registered.
func (m *Memory) HasPool(pool common.Address) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.pools[pool]
	return ok
}

// DropPool forgets the pool and its balances.
func (m *Memory) DropPool(pool common.Address) {
	m.mu.Lock()
	delete(m.pools, pool)
	m.mu.Unlock()
}

func (m *Memory) PoolTokens(_ context.Context, pool common.Address) ([]common.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.pools[pool]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, pool.Hex())
	}
	return append([]common.Address(nil), state.tokens...), nil
}

// Donate adds amounts to the pool balances. It always reports zero minted shares.
func (m *Memory) Donate(_ context.Context, pool common.Address, amounts []*uint256.Int) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.state(pool, len(amounts))
	if err != nil {
		return nil, err
	}
	if err := addAll(state.balances, amounts); err != nil {
		return nil, err
	}
	if err := addAll(state.donated, amounts); err != nil {
		return nil, err
	}
	return new(uint256.Int), nil
}

// AddLiquidity credits the pool with amounts supplied by a provider.
func (m *Memory) AddLiquidity(pool common.Address, amounts []*uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.state(pool, len(amounts))
	if err != nil {
		return err
	}
	return addAll(state.balances, amounts)
}

// RemoveLiquidity debits amounts paid out to a provider.
func (m *Memory) RemoveLiquidity(pool common.Address, amounts []*uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.state(pool, len(amounts))
	if err != nil {
		return err
	}
	for i, amount := range amounts {
		if amount != nil && state.balances[i].Lt(amount) {
			return fmt.Errorf("%w: pool %s token %d", ErrInsufficientBalance, pool.Hex(), i)
		}
	}
	for i, amount := range amounts {
		if amount != nil {
			state.balances[i].Sub(state.balances[i], amount)
		}
	}
	return nil
}

// Balances returns a copy of the pool balances.
func (m *Memory) Balances(pool common.Address) []*uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.pools[pool]
	if !ok {
		return nil
	}
	return clone(state.balances)
}

// Donated returns the cumulative donations received by the pool.
func (m *Memory) Donated(pool common.Address) []*uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.pools[pool]
	if !ok {
		return nil
	}
	return clone(state.donated)
}

// Pools lists the registered pools sorted by address.
func (m *Memory) Pools() []common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]common.Address, 0, len(m.pools))
	for pool := range m.pools {
		out = append(out, pool)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}

func (m *Memory) state(pool common.Address, n int) (*poolState, error) {
	state, ok := m.pools[pool]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, pool.Hex())
	}
	if len(state.tokens) != n {
		return nil, fmt.Errorf("pool %s: expected %d amounts, got %d", pool.Hex(), len(state.tokens), n)
	}
	return state, nil
}

func addAll(target, amounts []*uint256.Int) error {
	next := make([]*uint256.Int, len(target))
	for i, amount := range amounts {
		next[i] = target[i].Clone()
		if amount == nil {
			continue
		}
		if _, overflow := next[i].AddOverflow(next[i], amount); overflow {
			return fmt.Errorf("balance overflow at token %d", i)
		}
	}
	copy(target, next)
	return nil
}

func zeros(n int) []*uint256.Int {
	out := make([]*uint256.Int, n)
	for i := range out {
		out[i] = new(uint256.Int)
	}
	return out
}

func clone(in []*uint256.Int) []*uint256.Int {
	out := make([]*uint256.Int, len(in))
	for i, v := range in {
		out[i] = v.Clone()
	}
	return out
}

func sameTokens(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
