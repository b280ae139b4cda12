package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type methodCaller struct {
	responses map[string][]byte
	calls     int
}

func (m *methodCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	m.calls++
	resp, ok := m.responses[string(msg.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return resp, nil
}

func TestTokenReaderMeta(t *testing.T) {
	stringABI, bytes32ABI, err := erc20ABIs()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	decimals, err := stringABI.Methods["decimals"].Outputs.Pack(uint8(6))
	if err != nil {
		t.Fatalf("pack decimals: %v", err)
	}
	symbol, err := stringABI.Methods["symbol"].Outputs.Pack("USDC")
	if err != nil {
		t.Fatalf("pack symbol: %v", err)
	}
	var raw [32]byte
	copy(raw[:], "Maker")
	name, err := bytes32ABI.Methods["name"].Outputs.Pack(raw)
	if err != nil {
		t.Fatalf("pack name: %v", err)
	}

	caller := &methodCaller{responses: map[string][]byte{
		string(stringABI.Methods["decimals"].ID): decimals,
		string(stringABI.Methods["symbol"].ID):   symbol,
		string(stringABI.Methods["name"].ID):     name,
	}}
	reader := NewTokenReader(caller)
	token := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	meta, err := reader.Meta(context.Background(), token)
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.Decimals != 6 || meta.Symbol != "USDC" || meta.Name != "Maker" {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	calls := caller.calls
	got, err := reader.Decimals(context.Background(), token)
	if err != nil {
		t.Fatalf("decimals: %v", err)
	}
	if got != 6 {
		t.Fatalf("unexpected decimals: %d", got)
	}
	if caller.calls != calls {
		t.Fatalf("expected cached metadata, saw %d extra calls", caller.calls-calls)
	}
}

func TestTokenReaderRequiresDecimals(t *testing.T) {
	reader := NewTokenReader(&methodCaller{responses: map[string][]byte{}})
	if _, err := reader.Decimals(context.Background(), common.Address{}); err == nil {
		t.Fatalf("expected error without decimals")
	}
}
