package fleet

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SignTransaction signs a compiled transaction with every required
// signer. The message header names how many leading account keys must
// sign; each of those keys must map to one of the provided signers, and
// signatures land at the matching index.
func SignTransaction(ctx context.Context, tx *solana.Transaction, signers ...Signer) error {
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	byKey := make(map[solana.PublicKey]Signer, len(signers))
	for _, s := range signers {
		byKey[s.PublicKey()] = s
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("message requires %d signatures but has %d account keys",
			required, len(tx.Message.AccountKeys))
	}

	tx.Signatures = make([]solana.Signature, required)
	for i, key := range tx.Message.AccountKeys[:required] {
		signer, ok := byKey[key]
		if !ok {
			return fmt.Errorf("no signer for required key %s", key)
		}
		sig, err := signer.SignMessage(ctx, message)
		if err != nil {
			return fmt.Errorf("sign for %s: %w", key, err)
		}
		tx.Signatures[i] = sig
	}
	return nil
}

// tokenAmountOffset is where the u64 amount sits in an SPL token
// account: after the 32-byte mint and 32-byte owner.
const tokenAmountOffset = 64

// RefreshTokenBalances reads each wallet's associated token account for
// the mint and returns a new snapshot slice with Tokens filled in. A
// missing or undecodable account reads as zero.
func RefreshTokenBalances(ctx context.Context, reader LamportReader, wallets []*Wallet, mint solana.PublicKey) ([]*Wallet, error) {
	const batch = 100

	out := make([]*Wallet, len(wallets))
	atas := make([]solana.PublicKey, len(wallets))
	for i, w := range wallets {
		cp := *w
		out[i] = &cp
		ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey(), mint)
		if err != nil {
			return nil, fmt.Errorf("derive ata for %s: %w", w.PublicKey(), err)
		}
		atas[i] = ata
	}

	for start := 0; start < len(out); start += batch {
		end := start + batch
		if end > len(out) {
			end = len(out)
		}
		accounts, err := reader.GetMultipleAccounts(ctx, atas[start:end]...)
		if err != nil {
			return nil, fmt.Errorf("refresh token balances: %w", err)
		}
		for i, acc := range accounts {
			if acc == nil || acc.Data == nil {
				out[start+i].Tokens = 0
				continue
			}
			raw := acc.Data.GetBinary()
			if len(raw) < tokenAmountOffset+8 {
				out[start+i].Tokens = 0
				continue
			}
			out[start+i].Tokens = binary.LittleEndian.Uint64(raw[tokenAmountOffset : tokenAmountOffset+8])
		}
	}
	return out, nil
}
