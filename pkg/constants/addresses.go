package constants

import "github.com/gagliardetto/solana-go"

// Well-known program IDs
var (
	SystemProgramID          = solana.SystemProgramID
	TokenProgramID           = solana.TokenProgramID
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
	ComputeBudgetProgramID   = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	SysvarRentProgramID      = solana.SysVarRentPubkey

	// Address lookup table program
	AddressLookupTableProgramID = solana.MustPublicKeyFromBase58("AddressLookupTab1e1111111111111111111111111")

	// Pump.fun program and fee recipient
	PumpProgramID    = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	PumpFeeRecipient = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")

	WSOLMint = solana.WrappedSol
)

// PDA seeds
const (
	SeedGlobal         = "global"
	SeedBondingCurve   = "bonding-curve"
	SeedCreatorVault   = "creator-vault"
	SeedEventAuthority = "__event_authority"
)

// Pump instruction discriminators (8-byte little-endian u64).
const (
	BuyDiscriminator  uint64 = 16927863322537952870
	SellDiscriminator uint64 = 12502976635542562355
)

// Wire and account limits.
const (
	// MaxTransactionBytes is the serialized transaction size ceiling.
	MaxTransactionBytes = 1232

	// MaxLookupTableEntries is the on-chain cap on lookup table membership.
	MaxLookupTableEntries = 256

	// TokenAccountRentLamports is the rent-exempt minimum for a token
	// account; a wallet below this cannot open an ATA for a swap.
	TokenAccountRentLamports = 2_039_280

	// LookupTableExtendChunk is the number of addresses appended per
	// extend instruction.
	LookupTableExtendChunk = 10
)

// Address lookup table instruction indexes (u32 little-endian prefix).
const (
	LookupTableCreateIndex uint32 = 0
	LookupTableExtendIndex uint32 = 2
)

const LamportsPerSOL = 1_000_000_000
