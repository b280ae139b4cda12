package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Caller performs read-only contract calls. *Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// FactoryInspector asks a pool factory whether it deployed a pool.
type FactoryInspector struct {
	caller  Caller
	factory common.Address
}

func NewFactoryInspector(caller Caller, factory common.Address) *FactoryInspector {
	return &FactoryInspector{caller: caller, factory: factory}
}

// IsPoolFromFactory calls isPoolFromFactory(pool) on the factory.
func (f *FactoryInspector) IsPoolFromFactory(ctx context.Context, pool common.Address) (bool, error) {
	if f.caller == nil {
		return false, fmt.Errorf("chain caller is nil")
	}
	parsed, err := FactoryABI()
	if err != nil {
		return false, fmt.Errorf("parse factory abi: %w", err)
	}

	values, err := callMethod(ctx, f.caller, f.factory, parsed, "isPoolFromFactory", pool)
	if err != nil {
		return false, err
	}
	if len(values) != 1 {
		return false, fmt.Errorf("isPoolFromFactory return size %d", len(values))
	}
	ok, isBool := values[0].(bool)
	if !isBool {
		return false, fmt.Errorf("isPoolFromFactory unexpected type %T", values[0])
	}
	return ok, nil
}

// VaultReader reads pool token lists from the vault contract.
type VaultReader struct {
	caller Caller
	vault  common.Address
}

func NewVaultReader(caller Caller, vault common.Address) *VaultReader {
	return &VaultReader{caller: caller, vault: vault}
}

// PoolTokens calls getPoolTokens(pool) on the vault.
func (v *VaultReader) PoolTokens(ctx context.Context, pool common.Address) ([]common.Address, error) {
	if v.caller == nil {
		return nil, fmt.Errorf("chain caller is nil")
	}
	parsed, err := VaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}

	values, err := callMethod(ctx, v.caller, v.vault, parsed, "getPoolTokens", pool)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("getPoolTokens return size %d", len(values))
	}
	tokens, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getPoolTokens unexpected type %T", values[0])
	}
	return tokens, nil
}

func callMethod(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
