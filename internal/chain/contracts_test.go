package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type fakeCaller struct {
	to       common.Address
	selector []byte
	resp     []byte
	err      error
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To != nil {
		f.to = *msg.To
	}
	if len(msg.Data) >= 4 {
		f.selector = msg.Data[:4]
	}
	return f.resp, f.err
}

func TestFactoryInspector(t *testing.T) {
	parsed, err := FactoryABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	resp, err := parsed.Methods["isPoolFromFactory"].Outputs.Pack(true)
	if err != nil {
		t.Fatalf("pack output: %v", err)
	}

	factory := common.HexToAddress("0x00000000000000000000000000000000000000fa")
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	caller := &fakeCaller{resp: resp}

	ok, err := NewFactoryInspector(caller, factory).IsPoolFromFactory(context.Background(), pool)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !ok {
		t.Fatalf("expected pool from factory")
	}
	if caller.to != factory {
		t.Fatalf("call target mismatch: %s", caller.to.Hex())
	}
	if !bytes.Equal(caller.selector, parsed.Methods["isPoolFromFactory"].ID) {
		t.Fatalf("selector mismatch: %x", caller.selector)
	}
}

func TestFactoryInspectorCallError(t *testing.T) {
	caller := &fakeCaller{err: errors.New("execution reverted")}
	inspector := NewFactoryInspector(caller, common.Address{})
	if _, err := inspector.IsPoolFromFactory(context.Background(), common.Address{}); err == nil {
		t.Fatalf("expected call error")
	}
}

func TestVaultReaderPoolTokens(t *testing.T) {
	parsed, err := VaultABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	want := []common.Address{
		common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
	}
	resp, err := parsed.Methods["getPoolTokens"].Outputs.Pack(want)
	if err != nil {
		t.Fatalf("pack output: %v", err)
	}

	reader := NewVaultReader(&fakeCaller{resp: resp}, common.HexToAddress("0x00000000000000000000000000000000000000ba"))
	got, err := reader.PoolTokens(context.Background(), common.HexToAddress("0x1111111111111111111111111111111111111111"))
	if err != nil {
		t.Fatalf("pool tokens: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens mismatch: %v != %v", got, want)
	}
}
