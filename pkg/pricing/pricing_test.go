package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solfleet/pumpfleet/pkg/curve"
	"github.com/solfleet/pumpfleet/pkg/pricing"
	"github.com/solfleet/pumpfleet/pkg/types"
)

func testState() *curve.State {
	return &curve.State{
		VirtualTokenReserves:  1_000_000_000,
		VirtualNativeReserves: 30_000_000_000,
	}
}

func TestQuoteBuy(t *testing.T) {
	q, err := pricing.QuoteBuy(100_000_000, testState(), 5000)
	require.NoError(t, err)

	require.Equal(t, uint64(100_000_000), q.InputAmount)
	require.Equal(t, uint64(3_333_333), q.EstimatedOutput)
	require.Equal(t, uint64(150_000_000), q.WorstAcceptable)
}

func TestQuoteBuyZeroSlippage(t *testing.T) {
	q, err := pricing.QuoteBuy(100_000_000, testState(), 0)
	require.NoError(t, err)
	require.Equal(t, q.InputAmount, q.WorstAcceptable)
}

func TestQuoteSell(t *testing.T) {
	q, err := pricing.QuoteSell(1_000_000, testState(), 5000)
	require.NoError(t, err)

	require.Equal(t, uint64(30_000_000), q.EstimatedOutput)
	require.Equal(t, uint64(15_000_000), q.WorstAcceptable)
}

func TestQuoteSellZeroSlippage(t *testing.T) {
	q, err := pricing.QuoteSell(1_000_000, testState(), 0)
	require.NoError(t, err)
	require.Equal(t, q.EstimatedOutput, q.WorstAcceptable)
}

func TestQuoteMonotonicInInput(t *testing.T) {
	state := testState()
	var prevOut, prevCost uint64
	for _, in := range []uint64{1_000, 1_000_000, 50_000_000, 900_000_000} {
		q, err := pricing.QuoteBuy(in, state, 500)
		require.NoError(t, err)
		require.GreaterOrEqual(t, q.EstimatedOutput, prevOut)
		require.Greater(t, q.WorstAcceptable, prevCost)
		prevOut, prevCost = q.EstimatedOutput, q.WorstAcceptable
	}
}

func TestQuoteMonotonicInSlippage(t *testing.T) {
	state := testState()
	sweep := []uint64{0, 10, 100, 500, 1000, 2500, 5000}

	// more tolerance loosens the bounds: buy cost ceiling rises, sell
	// proceeds floor falls
	var prevCost uint64
	for i, bps := range sweep {
		q, err := pricing.QuoteBuy(100_000_000, state, bps)
		require.NoError(t, err)
		if i > 0 {
			require.GreaterOrEqual(t, q.WorstAcceptable, prevCost)
		}
		prevCost = q.WorstAcceptable
	}

	prevFloor := uint64(0)
	for i, bps := range sweep {
		q, err := pricing.QuoteSell(1_000_000, state, bps)
		require.NoError(t, err)
		if i > 0 {
			require.LessOrEqual(t, q.WorstAcceptable, prevFloor)
		}
		prevFloor = q.WorstAcceptable
	}
}

func TestQuoteRejectsEmptyCurve(t *testing.T) {
	_, err := pricing.QuoteBuy(1_000_000, nil, 500)
	require.ErrorIs(t, err, types.ErrInvalidCurveState)

	_, err = pricing.QuoteBuy(1_000_000, &curve.State{}, 500)
	require.ErrorIs(t, err, types.ErrInvalidCurveState)

	_, err = pricing.QuoteSell(1_000_000, &curve.State{VirtualTokenReserves: 1}, 500)
	require.ErrorIs(t, err, types.ErrInvalidCurveState)
}

func TestBuySellRoundtripNeverProfits(t *testing.T) {
	state := testState()
	for _, in := range []uint64{1_000, 999_999, 100_000_000} {
		buy, err := pricing.QuoteBuy(in, state, 0)
		require.NoError(t, err)
		sell, err := pricing.QuoteSell(buy.EstimatedOutput, state, 0)
		require.NoError(t, err)
		// flooring at each step can only lose value
		require.LessOrEqual(t, sell.EstimatedOutput, in)
	}
}

func TestQuoteSellWorstNeverExceedsEstimate(t *testing.T) {
	state := testState()
	for _, bps := range []uint64{0, 1, 500, 5000} {
		q, err := pricing.QuoteSell(7_777_777, state, bps)
		require.NoError(t, err)
		require.LessOrEqual(t, q.WorstAcceptable, q.EstimatedOutput)
	}
}
