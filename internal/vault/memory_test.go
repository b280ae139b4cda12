package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	pool   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func ints(values ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		out[i] = uint256.NewInt(v)
	}
	return out
}

func TestMemoryDonateMintsNothing(t *testing.T) {
	v := NewMemory()
	if err := v.RegisterPool(pool, []common.Address{tokenA, tokenB}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := v.AddLiquidity(pool, ints(100, 200)); err != nil {
		t.Fatalf("add: %v", err)
	}

	minted, err := v.Donate(context.Background(), pool, ints(5, 10))
	if err != nil {
		t.Fatalf("donate: %v", err)
	}
	if !minted.IsZero() {
		t.Fatalf("donation minted shares: %s", minted.Dec())
	}

	balances := v.Balances(pool)
	if balances[0].Uint64() != 105 || balances[1].Uint64() != 210 {
		t.Fatalf("balances mismatch: %v", balances)
	}
	donated := v.Donated(pool)
	if donated[0].Uint64() != 5 || donated[1].Uint64() != 10 {
		t.Fatalf("donated mismatch: %v", donated)
	}
}

func TestMemoryRemoveLiquidity(t *testing.T) {
	v := NewMemory()
	if err := v.RegisterPool(pool, []common.Address{tokenA, tokenB}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := v.AddLiquidity(pool, ints(100, 200)); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := v.RemoveLiquidity(pool, ints(101, 0)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := v.RemoveLiquidity(pool, ints(40, 50)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	balances := v.Balances(pool)
	if balances[0].Uint64() != 60 || balances[1].Uint64() != 150 {
		t.Fatalf("balances mismatch: %v", balances)
	}
}

func TestMemoryUnknownPoolAndLength(t *testing.T) {
	v := NewMemory()
	if _, err := v.PoolTokens(context.Background(), pool); !errors.Is(err, ErrUnknownPool) {
		t.Fatalf("expected unknown pool, got %v", err)
	}
	if err := v.RegisterPool(pool, []common.Address{tokenA}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := v.Donate(context.Background(), pool, ints(1, 2)); err == nil {
		t.Fatalf("expected length error")
	}
	if err := v.RegisterPool(pool, []common.Address{tokenB}); err == nil {
		t.Fatalf("expected conflicting registration error")
	}
}

func TestMemoryPoolsSorted(t *testing.T) {
	v := NewMemory()
	other := common.HexToAddress("0x0000000000000000000000000000000000000001")
	if err := v.RegisterPool(pool, []common.Address{tokenA}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := v.RegisterPool(other, []common.Address{tokenB}); err != nil {
		t.Fatalf("register: %v", err)
	}
	pools := v.Pools()
	if len(pools) != 2 || pools[0] != other || pools[1] != pool {
		t.Fatalf("unexpected pools: %v", pools)
	}
}

func TestMemoryDropPool(t *testing.T) {
	v := NewMemory()
	if err := v.RegisterPool(pool, []common.Address{tokenA, tokenB}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !v.HasPool(pool) {
		t.Fatalf("expected pool to be registered")
	}
	v.DropPool(pool)
	if v.HasPool(pool) || len(v.Pools()) != 0 {
		t.Fatalf("pool still present: %v", v.Pools())
	}
	if err := v.RegisterPool(pool, []common.Address{tokenB}); err != nil {
		t.Fatalf("re-register with other tokens: %v", err)
	}
}
