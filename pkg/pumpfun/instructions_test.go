package pumpfun_test

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/solfleet/pumpfleet/pkg/constants"
	"github.com/solfleet/pumpfleet/pkg/curve"
	"github.com/solfleet/pumpfleet/pkg/pumpfun"
)

func testState(t *testing.T) *curve.State {
	t.Helper()
	mint := solana.NewWallet().PublicKey()
	bc, err := curve.DeriveBondingCurve(mint)
	require.NoError(t, err)
	abc, _, err := solana.FindAssociatedTokenAddress(bc, mint)
	require.NoError(t, err)
	creator := solana.NewWallet().PublicKey()
	vault, err := curve.DeriveCreatorVault(creator)
	require.NoError(t, err)
	return &curve.State{
		TokenMint:              mint,
		BondingCurve:           bc,
		AssociatedBondingCurve: abc,
		Creator:                creator,
		CreatorVault:           vault,
		VirtualTokenReserves:   1,
		VirtualNativeReserves:  1,
	}
}

func TestBuyInstruction(t *testing.T) {
	state := testState(t)
	wallet := solana.NewWallet().PublicKey()
	ata, err := pumpfun.FindATA(wallet, state.TokenMint)
	require.NoError(t, err)

	ix, err := pumpfun.Buy(state, wallet, ata, 3_333_333, 150_000_000)
	require.NoError(t, err)
	require.Equal(t, constants.PumpProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	require.Equal(t, constants.BuyDiscriminator, binary.LittleEndian.Uint64(data[0:8]))
	require.Equal(t, uint64(3_333_333), binary.LittleEndian.Uint64(data[8:16]))
	require.Equal(t, uint64(150_000_000), binary.LittleEndian.Uint64(data[16:24]))

	accounts := ix.Accounts()
	require.Len(t, accounts, 12)
	require.Equal(t, constants.PumpFeeRecipient, accounts[1].PublicKey)
	require.Equal(t, state.TokenMint, accounts[2].PublicKey)
	require.Equal(t, state.BondingCurve, accounts[3].PublicKey)
	require.Equal(t, state.AssociatedBondingCurve, accounts[4].PublicKey)
	require.Equal(t, ata, accounts[5].PublicKey)
	require.Equal(t, wallet, accounts[6].PublicKey)
	require.True(t, accounts[6].IsSigner)
	require.Equal(t, state.CreatorVault, accounts[9].PublicKey)
	require.Equal(t, constants.PumpProgramID, accounts[11].PublicKey)
}

func TestSellInstruction(t *testing.T) {
	state := testState(t)
	wallet := solana.NewWallet().PublicKey()
	ata, err := pumpfun.FindATA(wallet, state.TokenMint)
	require.NoError(t, err)

	ix, err := pumpfun.Sell(state, wallet, ata, 1_000_000, 15_000_000)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, constants.SellDiscriminator, binary.LittleEndian.Uint64(data[0:8]))

	// sell swaps the creator vault ahead of the token program
	accounts := ix.Accounts()
	require.Len(t, accounts, 12)
	require.Equal(t, state.CreatorVault, accounts[8].PublicKey)
	require.Equal(t, constants.TokenProgramID, accounts[9].PublicKey)
	require.True(t, accounts[6].IsSigner)
}

func TestDiscriminatorWireBytes(t *testing.T) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], constants.BuyDiscriminator)
	require.Equal(t, []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}, buf[:])

	binary.LittleEndian.PutUint64(buf[:], constants.SellDiscriminator)
	require.Equal(t, []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}, buf[:])
}

func TestCreateATAIdempotent(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	ata, err := pumpfun.FindATA(owner, mint)
	require.NoError(t, err)

	ix := pumpfun.CreateATAIdempotent(owner, owner, ata, mint)
	require.Equal(t, constants.AssociatedTokenProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{1}, data)
	require.True(t, ix.Accounts()[0].IsSigner)
}

func TestCloseTokenAccount(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	acc := solana.NewWallet().PublicKey()

	ix := pumpfun.CloseTokenAccount(acc, owner, owner)
	require.Equal(t, constants.TokenProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{9}, data)
	require.True(t, ix.Accounts()[2].IsSigner)
}

func TestComputeBudgetEncoding(t *testing.T) {
	limit := pumpfun.SetComputeUnitLimit(1_400_000)
	data, err := limit.Data()
	require.NoError(t, err)
	require.Len(t, data, 5)
	require.Equal(t, byte(2), data[0])
	require.Equal(t, uint32(1_400_000), binary.LittleEndian.Uint32(data[1:]))

	price := pumpfun.SetComputeUnitPrice(50_000)
	data, err = price.Data()
	require.NoError(t, err)
	require.Len(t, data, 9)
	require.Equal(t, byte(3), data[0])
	require.Equal(t, uint64(50_000), binary.LittleEndian.Uint64(data[1:]))
}
