// Package bot orchestrates the fleet lifecycle: fund the wallets, run
// buy-sell cycles against the bonding curve, liquidate positions, and
// sweep balances home. Every cycle works from immutable snapshots of
// wallet balances and curve state taken at the start of the cycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/solfleet/pumpfleet/pkg/batcher"
	"github.com/solfleet/pumpfleet/pkg/config"
	"github.com/solfleet/pumpfleet/pkg/constants"
	"github.com/solfleet/pumpfleet/pkg/curve"
	"github.com/solfleet/pumpfleet/pkg/fleet"
	"github.com/solfleet/pumpfleet/pkg/jito"
	"github.com/solfleet/pumpfleet/pkg/lut"
	"github.com/solfleet/pumpfleet/pkg/pumpfun"
	"github.com/solfleet/pumpfleet/pkg/rpc"
	"github.com/solfleet/pumpfleet/pkg/submit"
	"github.com/solfleet/pumpfleet/pkg/types"
)

// ChainClient is the blockchain-access surface the bot consumes.
type ChainClient interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.Account, error)
	GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) ([]*solanarpc.Account, error)
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	GetSlot(ctx context.Context, commitment solanarpc.CommitmentType) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (rpc.Blockhash, error)
}

// Deliverer submits prepared transactions through the delivery pipeline.
type Deliverer interface {
	Deliver(ctx context.Context, prep submit.Prepared, useBundle bool) (submit.Result, error)
}

// TableManager owns the fleet's lookup table lifecycle.
type TableManager interface {
	Load(ctx context.Context) (*lut.Table, error)
	Create(ctx context.Context, addresses []solana.PublicKey) (*lut.Table, error)
	Extend(ctx context.Context, table *lut.Table, addresses []solana.PublicKey) (*lut.Table, error)
}

// Outcome summarizes one operation over the fleet.
type Outcome struct {
	Delivered  int
	Skipped    int
	Signatures []solana.Signature
}

// Bot drives the wallet fleet.
type Bot struct {
	chain   ChainClient
	deliver Deliverer
	tables  TableManager
	payer   *fleet.Wallet
	wallets []*fleet.Wallet
	mint    solana.PublicKey
	cfg     config.BotConfig
	log     zerolog.Logger

	// roll injects randomness for swap sizing; overridable in tests.
	roll func() float64

	table *lut.Table
	state *curve.State
}

// New builds a bot from loaded configuration and wallets.
func New(chain ChainClient, deliver Deliverer, tables TableManager, payer *fleet.Wallet, wallets []*fleet.Wallet, cfg config.BotConfig, log zerolog.Logger) (*Bot, error) {
	mint, err := solana.PublicKeyFromBase58(cfg.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("decode token mint: %w", err)
	}
	if len(wallets) == 0 {
		return nil, types.ErrEmptyWalletSet
	}
	return &Bot{
		chain:   chain,
		deliver: deliver,
		tables:  tables,
		payer:   payer,
		wallets: wallets,
		mint:    mint,
		cfg:     cfg,
		log:     log,
		roll:    rand.Float64,
	}, nil
}

// RefreshCurveState takes a fresh immutable snapshot of the bonding
// curve and caches it for the current cycle. A transient read failure
// gets one immediate retry before giving up.
func (b *Bot) RefreshCurveState(ctx context.Context) (*curve.State, error) {
	state, err := curve.Fetch(ctx, b.chain, b.mint)
	if err != nil && types.IsRecoverable(err) {
		b.log.Warn().Err(err).Msg("curve read failed, retrying")
		state, err = curve.Fetch(ctx, b.chain, b.mint)
	}
	if err != nil {
		return nil, err
	}
	b.state = state
	return state, nil
}

// fleetAddresses lists everything the swap transactions reference, for
// lookup table membership: the static program and curve accounts plus
// every wallet and its token account.
func (b *Bot) fleetAddresses(ctx context.Context) ([]solana.PublicKey, error) {
	if b.state == nil {
		if _, err := b.RefreshCurveState(ctx); err != nil {
			return nil, err
		}
	}
	global, err := curve.DeriveGlobal()
	if err != nil {
		return nil, err
	}
	eventAuthority, err := curve.DeriveEventAuthority()
	if err != nil {
		return nil, err
	}

	addrs := []solana.PublicKey{
		b.state.TokenMint,
		b.state.BondingCurve,
		b.state.AssociatedBondingCurve,
		b.state.CreatorVault,
		global,
		eventAuthority,
		constants.PumpProgramID,
		constants.PumpFeeRecipient,
		constants.SystemProgramID,
		constants.TokenProgramID,
		constants.AssociatedTokenProgramID,
		constants.ComputeBudgetProgramID,
		b.payer.PublicKey(),
	}
	addrs = append(addrs, jito.MainnetTipAccounts...)
	for _, w := range b.wallets {
		addrs = append(addrs, w.PublicKey())
		ata, err := pumpfun.FindATA(w.PublicKey(), b.mint)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, ata)
	}
	return addrs, nil
}

// CreateOrLoadLookupTable resolves the fleet's lookup table: load the
// persisted one and top it up, or create it once when absent.
func (b *Bot) CreateOrLoadLookupTable(ctx context.Context) (*lut.Table, error) {
	addrs, err := b.fleetAddresses(ctx)
	if err != nil {
		return nil, err
	}

	table, err := b.tables.Load(ctx)
	if err != nil {
		return nil, err
	}
	if table == nil {
		table, err = b.tables.Create(ctx, addrs)
	} else {
		table, err = b.tables.Extend(ctx, table, addrs)
	}
	if err != nil {
		return nil, err
	}
	b.table = table
	return table, nil
}

// Distribute fans the configured stake out to every wallet. Plain
// transfers go direct; the bundle relay adds nothing here.
func (b *Bot) Distribute(ctx context.Context) (Outcome, error) {
	payerBalance, err := b.chain.GetBalance(ctx, b.payer.PublicKey())
	if err != nil {
		return Outcome{}, fmt.Errorf("payer balance: %w", err)
	}
	need := b.cfg.DistributeAmountLamports * uint64(len(b.wallets))
	if payerBalance < need {
		return Outcome{}, fmt.Errorf("payer holds %d lamports, needs %d: %w",
			payerBalance, need, types.ErrInsufficientFunds)
	}

	groups, err := batcher.BuildDistribute(b.payer, payerBalance, b.wallets, b.cfg)
	if err != nil {
		return Outcome{}, err
	}
	return b.deliverGroups(ctx, groups, nil, false)
}

// Collect sweeps every wallet's full balance back to the payer.
func (b *Bot) Collect(ctx context.Context) (Outcome, error) {
	wallets, err := fleet.RefreshBalances(ctx, b.chain, b.wallets)
	if err != nil {
		return Outcome{}, err
	}
	groups, err := batcher.BuildCollect(wallets, b.payer.PublicKey(), b.payer, b.cfg)
	if err != nil {
		return Outcome{}, err
	}
	return b.deliverGroups(ctx, groups, nil, false)
}

// RunSwapCycle executes one pass over the fleet: snapshot balances and
// curve state, resolve each wallet's action, and deliver the resulting
// swap groups bundle-first through the lookup table. The table must be
// resolved first; without it the swap groups cannot fit on the wire.
func (b *Bot) RunSwapCycle(ctx context.Context) (Outcome, error) {
	if b.table == nil {
		return Outcome{}, fmt.Errorf("lookup table not resolved: %w", types.ErrTableAbsent)
	}
	wallets, err := fleet.RefreshBalances(ctx, b.chain, b.wallets)
	if err != nil {
		return Outcome{}, err
	}
	state, err := b.RefreshCurveState(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if state.Complete {
		return Outcome{}, fmt.Errorf("bonding curve complete: %w", types.ErrInvalidCurveState)
	}

	decisions := make([]batcher.Decision, 0, len(wallets))
	skipped := 0
	for _, w := range wallets {
		d := batcher.Decide(w, b.cfg, b.roll())
		if d.Action == batcher.ActionSkip {
			skipped++
			continue
		}
		decisions = append(decisions, d)
	}

	groups, err := batcher.BuildSwap(decisions, state, b.payer, b.cfg)
	if err != nil {
		return Outcome{}, err
	}

	out, err := b.deliverGroups(ctx, groups, b.table, true)
	out.Skipped += skipped
	return out, err
}

// RunSwapLoop repeats swap cycles until stop is closed or the context
// is cancelled, sleeping between passes. The stop channel is consulted
// only between cycles, so an in-flight cycle always runs to completion
// under ctx.
func (b *Bot) RunSwapLoop(ctx context.Context, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		out, err := b.RunSwapCycle(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			b.log.Error().Err(err).Msg("swap cycle failed")
		} else {
			b.log.Info().
				Int("delivered", out.Delivered).
				Int("skipped", out.Skipped).
				Msg("swap cycle complete")
		}

		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		case <-time.After(b.cfg.CycleSleep):
		}
	}
}

// SellAll liquidates every residual token position and closes the token
// accounts.
func (b *Bot) SellAll(ctx context.Context) (Outcome, error) {
	state, err := b.RefreshCurveState(ctx)
	if err != nil {
		return Outcome{}, err
	}
	wallets, err := fleet.RefreshTokenBalances(ctx, b.chain, b.wallets, b.mint)
	if err != nil {
		return Outcome{}, err
	}
	groups, err := batcher.BuildSellAll(wallets, state, b.payer, b.cfg)
	if err != nil {
		return Outcome{}, err
	}
	return b.deliverGroups(ctx, groups, b.table, true)
}

// deliverGroups compiles and submits each group independently: one
// rejected or oversized group never blocks the rest.
func (b *Bot) deliverGroups(ctx context.Context, groups []batcher.Group, table *lut.Table, useBundle bool) (Outcome, error) {
	var out Outcome
	for _, g := range groups {
		var tables batcher.Tables
		if table != nil {
			tables = table
		}
		prep, err := batcher.Prepare(ctx, b.chain, g, tables)
		if err != nil {
			if errors.Is(err, types.ErrSizeExceeded) {
				b.log.Warn().Str("group", g.Label).Err(err).Msg("group over wire size, skipped")
				out.Skipped++
				continue
			}
			return out, err
		}

		res, err := b.deliver.Deliver(ctx, prep, useBundle)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return out, err
			}
			b.log.Warn().Str("group", g.Label).Err(err).Msg("group delivery failed, skipped")
			out.Skipped++
			continue
		}
		out.Delivered++
		out.Signatures = append(out.Signatures, res.Signature)
		b.log.Info().
			Str("group", g.Label).
			Str("path", string(res.Path)).
			Stringer("sig", res.Signature).
			Msg("group delivered")
	}
	return out, nil
}
