// Package batcher turns the wallet fleet into size-bounded transaction
// plans: partitioning wallets into groups, deciding what each wallet
// does this cycle, and compiling groups into signed versioned
// transactions against the lookup table.
package batcher

import (
	"fmt"

	"github.com/solfleet/pumpfleet/pkg/config"
	"github.com/solfleet/pumpfleet/pkg/constants"
	"github.com/solfleet/pumpfleet/pkg/fleet"
)

// Partition splits items into consecutive groups of at most size. The
// final group carries the remainder.
func Partition[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

// Action tags what a wallet does in a swap cycle.
type Action int

const (
	// ActionSkip leaves the wallet out of this cycle.
	ActionSkip Action = iota
	// ActionRedirect sends excess balance to the overflow sink instead
	// of trading.
	ActionRedirect
	// ActionSwap buys and sells on the curve with part of the balance.
	ActionSwap
)

func (a Action) String() string {
	switch a {
	case ActionRedirect:
		return "redirect"
	case ActionSwap:
		return "swap"
	default:
		return "skip"
	}
}

// Decision is the resolved plan for one wallet in one cycle.
type Decision struct {
	Action Action
	Wallet *fleet.Wallet

	// SpendLamports is the swap input for ActionSwap.
	SpendLamports uint64
	// RedirectLamports is the amount sent to the sink for ActionRedirect.
	RedirectLamports uint64
}

// minSwapLamports is the floor under which a swap is not worth the fees.
const minSwapLamports = 1000

// Decide resolves one wallet's action from its cached balance. roll is
// an injected uniform [0,1) sample so sizing stays deterministic under
// test.
func Decide(w *fleet.Wallet, cfg config.BotConfig, roll float64) Decision {
	if w.Lamports > cfg.OverflowThresholdLamports && cfg.OverflowSink != "" {
		return Decision{
			Action:           ActionRedirect,
			Wallet:           w,
			RedirectLamports: w.Lamports - cfg.OverflowKeepLamports,
		}
	}

	if w.Lamports <= constants.TokenAccountRentLamports {
		return Decision{Action: ActionSkip, Wallet: w}
	}
	spendable := w.Lamports - constants.TokenAccountRentLamports

	fraction := cfg.SwapFraction + roll*cfg.SwapJitter
	spend := uint64(float64(spendable) * fraction)
	if spend <= minSwapLamports {
		return Decision{Action: ActionSkip, Wallet: w}
	}

	return Decision{Action: ActionSwap, Wallet: w, SpendLamports: spend}
}

func (d Decision) String() string {
	return fmt.Sprintf("%s %s", d.Wallet, d.Action)
}
