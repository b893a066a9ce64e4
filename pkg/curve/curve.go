// Package curve reads and decodes the on-chain bonding-curve state the
// pricing engine quotes against, and derives the program addresses the
// swap instructions reference.
package curve

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/solfleet/pumpfleet/pkg/constants"
	"github.com/solfleet/pumpfleet/pkg/types"
)

// State is an immutable snapshot of the constant-product curve.
// Refreshing produces a new value; nothing mutates one in place.
type State struct {
	TokenMint              solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	Creator                solana.PublicKey
	CreatorVault           solana.PublicKey

	VirtualTokenReserves  uint64
	VirtualNativeReserves uint64
	Complete              bool
}

// accountLayout mirrors the on-chain bonding curve account (borsh).
type accountLayout struct {
	Discriminator        uint64
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              solana.PublicKey
}

// AccountReader is the account-fetch slice of the RPC boundary.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.Account, error)
}

// DeriveBondingCurve returns the curve PDA for a mint.
func DeriveBondingCurve(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedBondingCurve), mint.Bytes()},
		constants.PumpProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive bonding curve: %w", err)
	}
	return addr, nil
}

// DeriveCreatorVault returns the creator fee vault PDA.
func DeriveCreatorVault(creator solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedCreatorVault), creator.Bytes()},
		constants.PumpProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive creator vault: %w", err)
	}
	return addr, nil
}

// DeriveGlobal returns the program's global config PDA.
func DeriveGlobal() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedGlobal)},
		constants.PumpProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive global: %w", err)
	}
	return addr, nil
}

// DeriveEventAuthority returns the program's event authority PDA.
func DeriveEventAuthority() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedEventAuthority)},
		constants.PumpProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive event authority: %w", err)
	}
	return addr, nil
}

// Decode parses raw bonding-curve account bytes into a snapshot.
func Decode(mint solana.PublicKey, data []byte) (*State, error) {
	var layout accountLayout
	if err := bin.NewBorshDecoder(data).Decode(&layout); err != nil {
		return nil, fmt.Errorf("decode bonding curve: %w", err)
	}

	bc, err := DeriveBondingCurve(mint)
	if err != nil {
		return nil, err
	}
	abc, _, err := solana.FindAssociatedTokenAddress(bc, mint)
	if err != nil {
		return nil, fmt.Errorf("derive associated bonding curve: %w", err)
	}
	vault, err := DeriveCreatorVault(layout.Creator)
	if err != nil {
		return nil, err
	}

	s := &State{
		TokenMint:              mint,
		BondingCurve:           bc,
		AssociatedBondingCurve: abc,
		Creator:                layout.Creator,
		CreatorVault:           vault,
		VirtualTokenReserves:   layout.VirtualTokenReserves,
		VirtualNativeReserves:  layout.VirtualSolReserves,
		Complete:               layout.Complete,
	}
	if s.VirtualTokenReserves == 0 || s.VirtualNativeReserves == 0 {
		return nil, fmt.Errorf("mint %s: %w", mint, types.ErrInvalidCurveState)
	}
	return s, nil
}

// Fetch reads the curve account for a mint and decodes it. A missing
// mint or curve account is ErrStateUnavailable; zero reserves are
// ErrInvalidCurveState.
func Fetch(ctx context.Context, reader AccountReader, mint solana.PublicKey) (*State, error) {
	mintAcc, err := reader.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("fetch mint: %w", err)
	}
	if mintAcc == nil {
		return nil, fmt.Errorf("mint %s not found: %w", mint, types.ErrStateUnavailable)
	}

	bc, err := DeriveBondingCurve(mint)
	if err != nil {
		return nil, err
	}
	acc, err := reader.GetAccountInfo(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("fetch bonding curve: %w", err)
	}
	if acc == nil || acc.Data == nil {
		return nil, fmt.Errorf("bonding curve %s not found: %w", bc, types.ErrStateUnavailable)
	}

	return Decode(mint, acc.Data.GetBinary())
}
