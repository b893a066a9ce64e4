// Package fleet owns the signer identities: generation, write-once
// persistence, ordered loading, and bulk balance refresh.
package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"

	"github.com/solfleet/pumpfleet/pkg/types"
)

// Signer performs detached signatures for transaction messages.
type Signer interface {
	PublicKey() solana.PublicKey
	SignMessage(ctx context.Context, message []byte) (solana.Signature, error)
}

// Wallet is one fleet member. The secret key stays unexported; it leaves
// this package only through the persisted wallet file.
type Wallet struct {
	key solana.PrivateKey

	// Cached balances, refreshed in bulk. Zero until first refresh.
	Lamports uint64
	Tokens   uint64
}

// FromPrivateKey wraps an existing key.
func FromPrivateKey(key solana.PrivateKey) *Wallet {
	return &Wallet{key: key}
}

// FromBase58 decodes a base58 secret key, e.g. the payer from config.
func FromBase58(secret string) (*Wallet, error) {
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("decode base58 key: %w", err)
	}
	return &Wallet{key: key}, nil
}

// PublicKey returns the wallet's public identity.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// SignMessage signs the provided message bytes.
func (w *Wallet) SignMessage(ctx context.Context, message []byte) (solana.Signature, error) {
	select {
	case <-ctx.Done():
		return solana.Signature{}, ctx.Err()
	default:
		sig, err := w.key.Sign(message)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("sign message: %w", err)
		}
		return sig, nil
	}
}

// String identifies the wallet without exposing secret material.
func (w *Wallet) String() string {
	return w.PublicKey().String()
}

// Generate creates n random keypairs and persists them immediately.
// The wallet store is write-once: an existing file is never rewritten.
func Generate(n int, path string) ([]*Wallet, error) {
	if n <= 0 {
		return nil, types.NewConfigError("wallets", "count must be positive")
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("wallet file %s already exists: %w", path, os.ErrExist)
	}

	wallets := make([]*Wallet, 0, n)
	secrets := make([]string, 0, n)
	for i := 0; i < n; i++ {
		key, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generate keypair: %w", err)
		}
		wallets = append(wallets, &Wallet{key: key})
		secrets = append(secrets, base58.Encode(key))
	}

	data, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode wallet file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write wallet file: %w", err)
	}
	// Owner read-only once written; best-effort on filesystems without
	// permission support.
	_ = os.Chmod(path, 0o400)

	return wallets, nil
}

// Load reads up to maxCount wallets from the persisted store, in file
// order. Loading never mutates the store.
func Load(path string, maxCount int) ([]*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.ErrEmptyWalletSet
		}
		return nil, fmt.Errorf("read wallet file: %w", err)
	}

	var secrets []string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("decode wallet file: %w", err)
	}

	wallets := make([]*Wallet, 0, len(secrets))
	for _, s := range secrets {
		raw, err := base58.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("decode wallet secret: %w", err)
		}
		wallets = append(wallets, &Wallet{key: solana.PrivateKey(raw)})
		if maxCount > 0 && len(wallets) >= maxCount {
			break
		}
	}
	if len(wallets) == 0 {
		return nil, types.ErrEmptyWalletSet
	}
	return wallets, nil
}

// LamportReader is the balance-read slice of the RPC boundary.
type LamportReader interface {
	GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) ([]*solanarpc.Account, error)
}

// RefreshBalances reads every wallet's lamport balance in bulk and
// returns a new snapshot slice; the input is not mutated.
func RefreshBalances(ctx context.Context, reader LamportReader, wallets []*Wallet) ([]*Wallet, error) {
	const batch = 100

	out := make([]*Wallet, len(wallets))
	for i, w := range wallets {
		cp := *w
		out[i] = &cp
	}

	for start := 0; start < len(out); start += batch {
		end := start + batch
		if end > len(out) {
			end = len(out)
		}
		keys := make([]solana.PublicKey, 0, end-start)
		for _, w := range out[start:end] {
			keys = append(keys, w.PublicKey())
		}
		accounts, err := reader.GetMultipleAccounts(ctx, keys...)
		if err != nil {
			return nil, fmt.Errorf("refresh balances: %w", err)
		}
		for i, acc := range accounts {
			if acc == nil {
				out[start+i].Lamports = 0
				continue
			}
			out[start+i].Lamports = acc.Lamports
		}
	}
	return out, nil
}
