package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"lpIncentive/internal/model"
)

const erc20StringABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return bytes32 for symbol and name.
const erc20Bytes32ABIJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20StringABI      abi.ABI
	erc20StringABIOnce  sync.Once
	erc20StringABIErr   error
	erc20Bytes32ABI     abi.ABI
	erc20Bytes32ABIOnce sync.Once
	erc20Bytes32ABIErr  error
)

func erc20ABIs() (abi.ABI, abi.ABI, error) {
	erc20StringABIOnce.Do(func() {
		erc20StringABI, erc20StringABIErr = abi.JSON(strings.NewReader(erc20StringABIJSON))
	})
	if erc20StringABIErr != nil {
		return abi.ABI{}, abi.ABI{}, fmt.Errorf("parse erc20 string abi: %w", erc20StringABIErr)
	}
	erc20Bytes32ABIOnce.Do(func() {
		erc20Bytes32ABI, erc20Bytes32ABIErr = abi.JSON(strings.NewReader(erc20Bytes32ABIJSON))
	})
	if erc20Bytes32ABIErr != nil {
		return abi.ABI{}, abi.ABI{}, fmt.Errorf("parse erc20 bytes32 abi: %w", erc20Bytes32ABIErr)
	}
	return erc20StringABI, erc20Bytes32ABI, nil
}

// TokenReader loads ERC20 metadata and caches it by address.
type TokenReader struct {
	caller Caller

	mu    sync.RWMutex
	cache map[common.Address]model.TokenMeta
}

func NewTokenReader(caller Caller) *TokenReader {
	return &TokenReader{caller: caller, cache: make(map[common.Address]model.TokenMeta)}
}

// Decimals returns the token's decimals.
func (r *TokenReader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	meta, err := r.Meta(ctx, token)
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

// Meta returns decimals, symbol and name. Only decimals is mandatory; a token without a
// readable symbol or name still succeeds.
func (r *TokenReader) Meta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	r.mu.RLock()
	meta, ok := r.cache[token]
	r.mu.RUnlock()
	if ok {
		return meta, nil
	}

	if r.caller == nil {
		return model.TokenMeta{}, fmt.Errorf("chain caller is nil")
	}
	stringABI, bytes32ABI, err := erc20ABIs()
	if err != nil {
		return model.TokenMeta{}, err
	}

	values, err := callMethod(ctx, r.caller, token, stringABI, "decimals")
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("token %s: %w", token.Hex(), err)
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("token %s decimals: %w", token.Hex(), err)
	}

	meta = model.TokenMeta{
		Address:  token.Hex(),
		Decimals: decimals,
		Symbol:   r.text(ctx, token, stringABI, bytes32ABI, "symbol"),
		Name:     r.text(ctx, token, stringABI, bytes32ABI, "name"),
	}

	r.mu.Lock()
	r.cache[token] = meta
	r.mu.Unlock()
	return meta, nil
}

func (r *TokenReader) text(ctx context.Context, token common.Address, stringABI, bytes32ABI abi.ABI, method string) string {
	if values, err := callMethod(ctx, r.caller, token, stringABI, method); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	if values, err := callMethod(ctx, r.caller, token, bytes32ABI, method); err == nil {
		if raw, ok := values[0].([32]byte); ok {
			return string(bytes.TrimRight(raw[:], "\x00"))
		}
	}
	return ""
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("value %s out of uint8 range", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
