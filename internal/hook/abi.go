package hook

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"lpIncentive/internal/model"
)

const (
	EventExitFeeCharged           = "ExitFeeCharged"
	EventExitFeePercentageChanged = "ExitFeePercentageChanged"
)

const hookEventsABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
      {"indexed": true, "internalType": "contract IERC20", "name": "token", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "feeAmount", "type": "uint256"}
    ],
    "name": "ExitFeeCharged",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "hookContract", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "exitFeePercentage", "type": "uint256"}
    ],
    "name": "ExitFeePercentageChanged",
    "type": "event"
  }
]`

var (
	hookEventsABI     abi.ABI
	hookEventsABIOnce sync.Once
	hookEventsABIErr  error
)

// EventsABI returns the parsed hook event ABI.
func EventsABI() (abi.ABI, error) {
	hookEventsABIOnce.Do(func() {
		hookEventsABI, hookEventsABIErr = abi.JSON(strings.NewReader(hookEventsABIJSON))
	})
	return hookEventsABI, hookEventsABIErr
}

func encodeExitFeeCharged(hookAddr, pool, token common.Address, fee *uint256.Int, ts uint64) (model.HookEvent, error) {
	parsed, err := EventsABI()
	if err != nil {
		return model.HookEvent{}, fmt.Errorf("parse hook abi: %w", err)
	}
	event := parsed.Events[EventExitFeeCharged]
	data, err := event.Inputs.NonIndexed().Pack(fee.ToBig())
	if err != nil {
		return model.HookEvent{}, fmt.Errorf("pack %s: %w", EventExitFeeCharged, err)
	}

	return model.HookEvent{
		Timestamp: ts,
		Address:   hookAddr.Hex(),
		EventName: EventExitFeeCharged,
		Topics: []string{
			event.ID.Hex(),
			common.BytesToHash(pool.Bytes()).Hex(),
			common.BytesToHash(token.Bytes()).Hex(),
		},
		Data: hexutil.Encode(data),
		Decoded: model.ExitFeeChargedData{
			Pool:      pool.Hex(),
			Token:     token.Hex(),
			FeeAmount: fee.Dec(),
		},
	}, nil
}

func encodeExitFeePercentageChanged(hookAddr common.Address, pct *uint256.Int, ts uint64) (model.HookEvent, error) {
	parsed, err := EventsABI()
	if err != nil {
		return model.HookEvent{}, fmt.Errorf("parse hook abi: %w", err)
	}
	event := parsed.Events[EventExitFeePercentageChanged]
	data, err := event.Inputs.NonIndexed().Pack(pct.ToBig())
	if err != nil {
		return model.HookEvent{}, fmt.Errorf("pack %s: %w", EventExitFeePercentageChanged, err)
	}

	return model.HookEvent{
		Timestamp: ts,
		Address:   hookAddr.Hex(),
		EventName: EventExitFeePercentageChanged,
		Topics: []string{
			event.ID.Hex(),
			common.BytesToHash(hookAddr.Bytes()).Hex(),
		},
		Data: hexutil.Encode(data),
		Decoded: model.ExitFeePercentageChangedData{
			HookContract:      hookAddr.Hex(),
			ExitFeePercentage: pct.Dec(),
		},
	}, nil
}

// DecodeExitFeeCharged rebuilds the payload of an ExitFeeCharged event from its topics and data.
func DecodeExitFeeCharged(event model.HookEvent) (model.ExitFeeChargedData, error) {
	parsed, err := EventsABI()
	if err != nil {
		return model.ExitFeeChargedData{}, fmt.Errorf("parse hook abi: %w", err)
	}
	spec := parsed.Events[EventExitFeeCharged]
	if len(event.Topics) != 3 {
		return model.ExitFeeChargedData{}, fmt.Errorf("exit fee event: expected 3 topics, got %d", len(event.Topics))
	}
	if !strings.EqualFold(event.Topics[0], spec.ID.Hex()) {
		return model.ExitFeeChargedData{}, fmt.Errorf("exit fee event: unexpected topic0 %s", event.Topics[0])
	}

	data, err := hexutil.Decode(event.Data)
	if err != nil {
		return model.ExitFeeChargedData{}, fmt.Errorf("decode data: %w", err)
	}
	values, err := spec.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return model.ExitFeeChargedData{}, fmt.Errorf("unpack %s: %w", EventExitFeeCharged, err)
	}
	if len(values) != 1 {
		return model.ExitFeeChargedData{}, fmt.Errorf("%s return size %d", EventExitFeeCharged, len(values))
	}
	fee, ok := values[0].(*big.Int)
	if !ok {
		return model.ExitFeeChargedData{}, fmt.Errorf("%s unexpected type %T", EventExitFeeCharged, values[0])
	}

	return model.ExitFeeChargedData{
		Pool:      common.BytesToAddress(common.HexToHash(event.Topics[1]).Bytes()).Hex(),
		Token:     common.BytesToAddress(common.HexToHash(event.Topics[2]).Bytes()).Hex(),
		FeeAmount: fee.String(),
	}, nil
}
