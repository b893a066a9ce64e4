// Package pricing computes trade quotes from the constant-product curve.
// All functions are pure; amounts are integer base units and every
// division floors.
package pricing

import (
	"math/big"

	"github.com/solfleet/pumpfleet/pkg/curve"
	"github.com/solfleet/pumpfleet/pkg/types"
)

const bpsDenominator = 10_000

// Quote is a derived, non-persisted trade estimate. WorstAcceptable is
// the slippage bound in the loss direction for the wallet: a maximum
// cost for buys, a minimum output for sells.
type Quote struct {
	InputAmount     uint64
	EstimatedOutput uint64
	WorstAcceptable uint64
}

// QuoteBuy estimates token output for nativeIn lamports and bounds the
// acceptable cost at nativeIn·(1+slippage).
//
// Slippage arrives as basis points; validating its range is the
// caller's configuration problem, not a pricing error.
func QuoteBuy(nativeIn uint64, c *curve.State, slippageBps uint64) (Quote, error) {
	if c == nil || c.VirtualTokenReserves == 0 || c.VirtualNativeReserves == 0 {
		return Quote{}, types.ErrInvalidCurveState
	}

	// estimatedTokenOut = floor(nativeIn * vTok / vNative)
	out := new(big.Int).SetUint64(nativeIn)
	out.Mul(out, new(big.Int).SetUint64(c.VirtualTokenReserves))
	out.Div(out, new(big.Int).SetUint64(c.VirtualNativeReserves))

	// maxNativeCost = floor(nativeIn * (10000 + bps) / 10000)
	maxCost := new(big.Int).SetUint64(nativeIn)
	maxCost.Mul(maxCost, big.NewInt(int64(bpsDenominator+slippageBps)))
	maxCost.Div(maxCost, big.NewInt(bpsDenominator))

	return Quote{
		InputAmount:     nativeIn,
		EstimatedOutput: out.Uint64(),
		WorstAcceptable: maxCost.Uint64(),
	}, nil
}

// QuoteSell estimates native output for tokenIn tokens and bounds the
// acceptable output at tokenIn·(1−slippage)·vNative/vTok.
func QuoteSell(tokenIn uint64, c *curve.State, slippageBps uint64) (Quote, error) {
	if c == nil || c.VirtualTokenReserves == 0 || c.VirtualNativeReserves == 0 {
		return Quote{}, types.ErrInvalidCurveState
	}

	// estimatedNativeOut = floor(tokenIn * vNative / vTok)
	out := new(big.Int).SetUint64(tokenIn)
	out.Mul(out, new(big.Int).SetUint64(c.VirtualNativeReserves))
	out.Div(out, new(big.Int).SetUint64(c.VirtualTokenReserves))

	// minNativeOut = floor(tokenIn * (10000 - bps) * vNative / (vTok * 10000))
	bps := slippageBps
	if bps > bpsDenominator {
		bps = bpsDenominator
	}
	minOut := new(big.Int).SetUint64(tokenIn)
	minOut.Mul(minOut, big.NewInt(int64(bpsDenominator-bps)))
	minOut.Mul(minOut, new(big.Int).SetUint64(c.VirtualNativeReserves))
	minOut.Div(minOut, new(big.Int).Mul(
		new(big.Int).SetUint64(c.VirtualTokenReserves),
		big.NewInt(bpsDenominator),
	))

	return Quote{
		InputAmount:     tokenIn,
		EstimatedOutput: out.Uint64(),
		WorstAcceptable: minOut.Uint64(),
	}, nil
}
