package curve_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	"github.com/solfleet/pumpfleet/pkg/curve"
	"github.com/solfleet/pumpfleet/pkg/types"
)

// curveAccountBytes builds a raw bonding curve account: six u64 fields,
// a one-byte bool, then the 32-byte creator key.
func curveAccountBytes(vTok, vSol uint64, complete bool, creator solana.PublicKey) []byte {
	data := make([]byte, 8*6+1+32)
	binary.LittleEndian.PutUint64(data[0:8], 0x60_0d_f0_0d) // discriminator, opaque here
	binary.LittleEndian.PutUint64(data[8:16], vTok)
	binary.LittleEndian.PutUint64(data[16:24], vSol)
	binary.LittleEndian.PutUint64(data[24:32], vTok/2)
	binary.LittleEndian.PutUint64(data[32:40], vSol/2)
	binary.LittleEndian.PutUint64(data[40:48], vTok*2)
	if complete {
		data[48] = 1
	}
	copy(data[49:], creator.Bytes())
	return data
}

type fakeReader struct {
	accounts map[solana.PublicKey][]byte
}

func (f *fakeReader) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.Account, error) {
	data, ok := f.accounts[account]
	if !ok {
		return nil, nil
	}
	return &solanarpc.Account{Data: solanarpc.DataBytesOrJSONFromBytes(data)}, nil
}

func TestDecode(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()

	state, err := curve.Decode(mint, curveAccountBytes(1_000_000_000, 30_000_000_000, false, creator))
	require.NoError(t, err)

	require.Equal(t, mint, state.TokenMint)
	require.Equal(t, creator, state.Creator)
	require.Equal(t, uint64(1_000_000_000), state.VirtualTokenReserves)
	require.Equal(t, uint64(30_000_000_000), state.VirtualNativeReserves)
	require.False(t, state.Complete)

	bc, err := curve.DeriveBondingCurve(mint)
	require.NoError(t, err)
	require.Equal(t, bc, state.BondingCurve)

	vault, err := curve.DeriveCreatorVault(creator)
	require.NoError(t, err)
	require.Equal(t, vault, state.CreatorVault)
}

func TestDecodeCompleteFlag(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	state, err := curve.Decode(mint, curveAccountBytes(1, 1, true, solana.NewWallet().PublicKey()))
	require.NoError(t, err)
	require.True(t, state.Complete)
}

func TestDecodeRejectsZeroReserves(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	_, err := curve.Decode(mint, curveAccountBytes(0, 30_000_000_000, false, solana.NewWallet().PublicKey()))
	require.ErrorIs(t, err, types.ErrInvalidCurveState)
}

func TestDecodeRejectsTruncatedData(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	_, err := curve.Decode(mint, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestFetch(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	bc, err := curve.DeriveBondingCurve(mint)
	require.NoError(t, err)

	reader := &fakeReader{accounts: map[solana.PublicKey][]byte{
		mint: {0x01}, // mint account exists, content irrelevant here
		bc:   curveAccountBytes(1_000_000_000, 30_000_000_000, false, creator),
	}}

	state, err := curve.Fetch(context.Background(), reader, mint)
	require.NoError(t, err)
	require.Equal(t, uint64(30_000_000_000), state.VirtualNativeReserves)
}

func TestFetchMissingMint(t *testing.T) {
	reader := &fakeReader{accounts: map[solana.PublicKey][]byte{}}
	_, err := curve.Fetch(context.Background(), reader, solana.NewWallet().PublicKey())
	require.ErrorIs(t, err, types.ErrStateUnavailable)
}

func TestFetchMissingCurveAccount(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	reader := &fakeReader{accounts: map[solana.PublicKey][]byte{
		mint: {0x01},
	}}
	_, err := curve.Fetch(context.Background(), reader, mint)
	require.ErrorIs(t, err, types.ErrStateUnavailable)
}

func TestDerivationsAreStable(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	a, err := curve.DeriveBondingCurve(mint)
	require.NoError(t, err)
	b, err := curve.DeriveBondingCurve(mint)
	require.NoError(t, err)
	require.Equal(t, a, b)

	g1, err := curve.DeriveGlobal()
	require.NoError(t, err)
	g2, err := curve.DeriveGlobal()
	require.NoError(t, err)
	require.Equal(t, g1, g2)
}
