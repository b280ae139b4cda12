package hook

import (
	"context"
	"fmt"
)

// Dispatch routes a vault callback to its handler.
func (e *Engine) Dispatch(ctx context.Context, msg Message) (Response, error) {
	switch m := msg.(type) {
	case RegisterMsg:
		ok, err := e.OnRegister(ctx, m)
		if err != nil {
			return Response{}, err
		}
		return Response{Handled: true, Accepted: ok}, nil
	case AfterAddMsg:
		amounts, err := e.OnAfterAddLiquidity(ctx, m)
		if err != nil {
			return Response{}, err
		}
		return Response{Handled: true, Accepted: true, AmountsRaw: amounts}, nil
	case AfterRemoveMsg:
		amounts, err := e.OnAfterRemoveLiquidity(ctx, m)
		if err != nil {
			return Response{}, err
		}
		return Response{Handled: true, Accepted: true, AmountsRaw: amounts}, nil
	case SwapFeeQueryMsg:
		fee, err := e.OnComputeDynamicSwapFee(ctx, m)
		if err != nil {
			return Response{}, err
		}
		return Response{Handled: true, Accepted: true, FeePercentage: fee}, nil
	default:
		return Response{}, fmt.Errorf("unsupported message %T", msg)
	}
}
