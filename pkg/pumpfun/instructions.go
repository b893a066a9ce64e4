// Package pumpfun builds the fixed-layout instructions for the pump.fun
// bonding-curve program. The account list order for each instruction
// matches the program's account schema exactly; reordering is a protocol
// violation.
package pumpfun

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solfleet/pumpfleet/pkg/constants"
	"github.com/solfleet/pumpfleet/pkg/curve"
)

// swapData encodes the fixed-width payload: 8-byte LE discriminator,
// 8-byte LE token amount, 8-byte LE counter-amount.
func swapData(discriminator, tokenAmount, counterAmount uint64) []byte {
	data := make([]byte, 24)
	binary.LittleEndian.PutUint64(data[0:8], discriminator)
	binary.LittleEndian.PutUint64(data[8:16], tokenAmount)
	binary.LittleEndian.PutUint64(data[16:24], counterAmount)
	return data
}

// Buy builds a buy instruction: tokenAmount tokens for at most
// maxNativeCost lamports. The wallet co-signs; its signature is required
// by the program.
func Buy(c *curve.State, wallet, walletATA solana.PublicKey, tokenAmount, maxNativeCost uint64) (solana.Instruction, error) {
	global, err := curve.DeriveGlobal()
	if err != nil {
		return nil, err
	}
	eventAuthority, err := curve.DeriveEventAuthority()
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(global, false, false),
		solana.NewAccountMeta(constants.PumpFeeRecipient, true, false),
		solana.NewAccountMeta(c.TokenMint, false, false),
		solana.NewAccountMeta(c.BondingCurve, true, false),
		solana.NewAccountMeta(c.AssociatedBondingCurve, true, false),
		solana.NewAccountMeta(walletATA, true, false),
		solana.NewAccountMeta(wallet, true, true),
		solana.NewAccountMeta(constants.SystemProgramID, false, false),
		solana.NewAccountMeta(constants.TokenProgramID, true, false),
		solana.NewAccountMeta(c.CreatorVault, true, false),
		solana.NewAccountMeta(eventAuthority, false, false),
		solana.NewAccountMeta(constants.PumpProgramID, false, false),
	}
	return solana.NewInstruction(
		constants.PumpProgramID,
		metas,
		swapData(constants.BuyDiscriminator, tokenAmount, maxNativeCost),
	), nil
}

// Sell builds a sell instruction: tokenAmount tokens for at least
// minNativeOut lamports.
func Sell(c *curve.State, wallet, walletATA solana.PublicKey, tokenAmount, minNativeOut uint64) (solana.Instruction, error) {
	global, err := curve.DeriveGlobal()
	if err != nil {
		return nil, err
	}
	eventAuthority, err := curve.DeriveEventAuthority()
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(global, false, false),
		solana.NewAccountMeta(constants.PumpFeeRecipient, true, false),
		solana.NewAccountMeta(c.TokenMint, false, false),
		solana.NewAccountMeta(c.BondingCurve, true, false),
		solana.NewAccountMeta(c.AssociatedBondingCurve, true, false),
		solana.NewAccountMeta(walletATA, true, false),
		solana.NewAccountMeta(wallet, true, true),
		solana.NewAccountMeta(constants.SystemProgramID, false, false),
		solana.NewAccountMeta(c.CreatorVault, true, false),
		solana.NewAccountMeta(constants.TokenProgramID, true, false),
		solana.NewAccountMeta(eventAuthority, false, false),
		solana.NewAccountMeta(constants.PumpProgramID, false, false),
	}
	return solana.NewInstruction(
		constants.PumpProgramID,
		metas,
		swapData(constants.SellDiscriminator, tokenAmount, minNativeOut),
	), nil
}

// CreateATAIdempotent builds an associated-token-account create that is
// a no-op when the account already exists (instruction tag 1).
func CreateATAIdempotent(payer, owner, ata, mint solana.PublicKey) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(ata, true, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(constants.SystemProgramID, false, false),
		solana.NewAccountMeta(constants.TokenProgramID, false, false),
	}
	return solana.NewInstruction(constants.AssociatedTokenProgramID, metas, []byte{1})
}

// CloseTokenAccount builds a token CloseAccount (tag 9) returning the
// rent lamports to destination.
func CloseTokenAccount(account, destination, owner solana.PublicKey) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(account, true, false),
		solana.NewAccountMeta(destination, true, false),
		solana.NewAccountMeta(owner, false, true),
	}
	return solana.NewInstruction(constants.TokenProgramID, metas, []byte{9})
}

// SetComputeUnitLimit builds a compute-budget unit limit instruction (tag 2).
func SetComputeUnitLimit(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], units)
	return solana.NewInstruction(constants.ComputeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// SetComputeUnitPrice builds a compute-budget priority fee instruction (tag 3).
func SetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return solana.NewInstruction(constants.ComputeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// FindATA derives the associated token account for a wallet and mint.
func FindATA(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive ata: %w", err)
	}
	return ata, nil
}
