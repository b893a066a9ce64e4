package batcher

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/solfleet/pumpfleet/pkg/config"
	"github.com/solfleet/pumpfleet/pkg/constants"
	"github.com/solfleet/pumpfleet/pkg/curve"
	"github.com/solfleet/pumpfleet/pkg/fleet"
	"github.com/solfleet/pumpfleet/pkg/jito"
	"github.com/solfleet/pumpfleet/pkg/pricing"
	"github.com/solfleet/pumpfleet/pkg/pumpfun"
	"github.com/solfleet/pumpfleet/pkg/rpc"
	"github.com/solfleet/pumpfleet/pkg/submit"
	"github.com/solfleet/pumpfleet/pkg/types"
)

// swapComputeUnits caps compute for a multi-wallet swap transaction.
const swapComputeUnits = 1_400_000

// Group is one planned transaction: its instructions and everyone who
// must sign it. The payer always signs; Signers lists the additional
// wallet co-signers.
type Group struct {
	Label        string
	Instructions []solana.Instruction
	Payer        fleet.Signer
	Signers      []fleet.Signer
}

// BuildDistribute plans lamport fan-out from the payer to every wallet.
// When the payer holds more than its cap and a sink is configured, the
// excess rides along in the first group.
func BuildDistribute(payer fleet.Signer, payerLamports uint64, wallets []*fleet.Wallet, cfg config.BotConfig) ([]Group, error) {
	if len(wallets) == 0 {
		return nil, types.ErrEmptyWalletSet
	}

	groups := make([]Group, 0)
	for i, part := range Partition(wallets, cfg.Groups.Distribute) {
		ixs := make([]solana.Instruction, 0, len(part)+1)
		for _, w := range part {
			ixs = append(ixs, system.NewTransferInstruction(
				cfg.DistributeAmountLamports, payer.PublicKey(), w.PublicKey(),
			).Build())
		}
		groups = append(groups, Group{
			Label:        fmt.Sprintf("distribute-%d", i),
			Instructions: ixs,
			Payer:        payer,
		})
	}

	if cfg.OverflowSink != "" && payerLamports > cfg.PayerMaxLamports {
		sink, err := solana.PublicKeyFromBase58(cfg.OverflowSink)
		if err != nil {
			return nil, fmt.Errorf("decode overflow sink: %w", err)
		}
		excess := payerLamports - cfg.PayerMaxLamports
		groups[0].Instructions = append(groups[0].Instructions,
			system.NewTransferInstruction(excess, payer.PublicKey(), sink).Build())
	}

	return groups, nil
}

// BuildCollect plans full-balance sweeps from every funded wallet back
// to the destination. The payer covers fees so wallets can empty out
// completely; each swept wallet co-signs its own transfer.
func BuildCollect(wallets []*fleet.Wallet, dest solana.PublicKey, payer fleet.Signer, cfg config.BotConfig) ([]Group, error) {
	funded := make([]*fleet.Wallet, 0, len(wallets))
	for _, w := range wallets {
		if w.Lamports > 0 {
			funded = append(funded, w)
		}
	}
	if len(funded) == 0 {
		return nil, types.ErrEmptyWalletSet
	}

	groups := make([]Group, 0)
	for i, part := range Partition(funded, cfg.Groups.Collect) {
		ixs := make([]solana.Instruction, 0, len(part))
		signers := make([]fleet.Signer, 0, len(part))
		for _, w := range part {
			ixs = append(ixs, system.NewTransferInstruction(
				w.Lamports, w.PublicKey(), dest,
			).Build())
			signers = append(signers, w)
		}
		groups = append(groups, Group{
			Label:        fmt.Sprintf("collect-%d", i),
			Instructions: ixs,
			Payer:        payer,
			Signers:      signers,
		})
	}
	return groups, nil
}

// BuildSwap plans one cycle of buy-then-sell round trips from resolved
// wallet decisions. Skips fall out, redirects become sink transfers,
// and swaps expand into ATA create, buy, sell, and ATA close. Each
// transaction carries one compute budget limit and one priority fee
// instruction; the relay tip rides on the final group.
func BuildSwap(decisions []Decision, state *curve.State, payer fleet.Signer, cfg config.BotConfig) ([]Group, error) {
	active := make([]Decision, 0, len(decisions))
	for _, d := range decisions {
		if d.Action != ActionSkip {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}

	var sink solana.PublicKey
	if cfg.OverflowSink != "" {
		var err error
		sink, err = solana.PublicKeyFromBase58(cfg.OverflowSink)
		if err != nil {
			return nil, fmt.Errorf("decode overflow sink: %w", err)
		}
	}

	parts := Partition(active, cfg.Groups.Swap)
	groups := make([]Group, 0, len(parts))
	for i, part := range parts {
		ixs := []solana.Instruction{
			pumpfun.SetComputeUnitLimit(swapComputeUnits),
			pumpfun.SetComputeUnitPrice(cfg.ComputeUnitPriceMicroLamports),
		}
		signers := make([]fleet.Signer, 0, len(part))

		for _, d := range part {
			w := d.Wallet
			signers = append(signers, w)

			switch d.Action {
			case ActionRedirect:
				ixs = append(ixs, system.NewTransferInstruction(
					d.RedirectLamports, w.PublicKey(), sink,
				).Build())

			case ActionSwap:
				ata, err := pumpfun.FindATA(w.PublicKey(), state.TokenMint)
				if err != nil {
					return nil, err
				}
				buy, err := pricing.QuoteBuy(d.SpendLamports, state, cfg.SlippageBps())
				if err != nil {
					return nil, err
				}
				sell, err := pricing.QuoteSell(buy.EstimatedOutput, state, cfg.SlippageBps())
				if err != nil {
					return nil, err
				}

				buyIx, err := pumpfun.Buy(state, w.PublicKey(), ata, buy.EstimatedOutput, buy.WorstAcceptable)
				if err != nil {
					return nil, err
				}
				sellIx, err := pumpfun.Sell(state, w.PublicKey(), ata, buy.EstimatedOutput, sell.WorstAcceptable)
				if err != nil {
					return nil, err
				}

				ixs = append(ixs,
					pumpfun.CreateATAIdempotent(w.PublicKey(), w.PublicKey(), ata, state.TokenMint),
					buyIx,
					sellIx,
					pumpfun.CloseTokenAccount(ata, w.PublicKey(), w.PublicKey()),
				)
			}
		}

		if i == len(parts)-1 && cfg.TipLamports > 0 {
			ixs = append(ixs, system.NewTransferInstruction(
				cfg.TipLamports, payer.PublicKey(), jito.RandomTipAccount(),
			).Build())
		}

		groups = append(groups, Group{
			Label:        fmt.Sprintf("swap-%d", i),
			Instructions: ixs,
			Payer:        payer,
			Signers:      signers,
		})
	}
	return groups, nil
}

// BuildSellAll plans liquidation of every residual token position: sell
// the full cached token balance and close the ATA. Wallets with no
// tokens fall out.
func BuildSellAll(wallets []*fleet.Wallet, state *curve.State, payer fleet.Signer, cfg config.BotConfig) ([]Group, error) {
	holding := make([]*fleet.Wallet, 0, len(wallets))
	for _, w := range wallets {
		if w.Tokens > 0 {
			holding = append(holding, w)
		}
	}
	if len(holding) == 0 {
		return nil, nil
	}

	parts := Partition(holding, cfg.Groups.SellAll)
	groups := make([]Group, 0, len(parts))
	for i, part := range parts {
		ixs := []solana.Instruction{
			pumpfun.SetComputeUnitLimit(swapComputeUnits),
			pumpfun.SetComputeUnitPrice(cfg.ComputeUnitPriceMicroLamports),
		}
		signers := make([]fleet.Signer, 0, len(part))

		for _, w := range part {
			signers = append(signers, w)

			ata, err := pumpfun.FindATA(w.PublicKey(), state.TokenMint)
			if err != nil {
				return nil, err
			}
			sell, err := pricing.QuoteSell(w.Tokens, state, cfg.SlippageBps())
			if err != nil {
				return nil, err
			}
			sellIx, err := pumpfun.Sell(state, w.PublicKey(), ata, w.Tokens, sell.WorstAcceptable)
			if err != nil {
				return nil, err
			}
			ixs = append(ixs,
				sellIx,
				pumpfun.CloseTokenAccount(ata, w.PublicKey(), w.PublicKey()),
			)
		}

		if i == len(parts)-1 && cfg.TipLamports > 0 {
			ixs = append(ixs, system.NewTransferInstruction(
				cfg.TipLamports, payer.PublicKey(), jito.RandomTipAccount(),
			).Build())
		}

		groups = append(groups, Group{
			Label:        fmt.Sprintf("sellall-%d", i),
			Instructions: ixs,
			Payer:        payer,
			Signers:      signers,
		})
	}
	return groups, nil
}

// BlockhashProvider is the blockhash slice of the RPC boundary.
type BlockhashProvider interface {
	GetLatestBlockhash(ctx context.Context) (rpc.Blockhash, error)
}

// Tables shapes lookup table content for transaction compilation.
type Tables interface {
	AsMap() map[solana.PublicKey]solana.PublicKeySlice
}

// Compile builds and signs a group against a blockhash, resolving
// account references through the lookup table when one is given. A
// compiled transaction over the wire size ceiling is ErrSizeExceeded.
func Compile(ctx context.Context, group Group, bh rpc.Blockhash, table Tables) (*solana.Transaction, error) {
	opts := []solana.TransactionOption{solana.TransactionPayer(group.Payer.PublicKey())}
	if table != nil {
		opts = append(opts, solana.TransactionAddressTables(table.AsMap()))
	}

	tx, err := solana.NewTransaction(group.Instructions, bh.Hash, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", group.Label, err)
	}

	signers := append([]fleet.Signer{group.Payer}, group.Signers...)
	if err := fleet.SignTransaction(ctx, tx, signers...); err != nil {
		return nil, fmt.Errorf("sign %s: %w", group.Label, err)
	}

	wire, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", group.Label, err)
	}
	if len(wire) > constants.MaxTransactionBytes {
		return nil, fmt.Errorf("%s is %d bytes: %w", group.Label, len(wire), types.ErrSizeExceeded)
	}
	return tx, nil
}

// Prepare compiles a group now and packages it for delivery with a
// rebuild path for blockhash expiry.
func Prepare(ctx context.Context, chain BlockhashProvider, group Group, table Tables) (submit.Prepared, error) {
	bh, err := chain.GetLatestBlockhash(ctx)
	if err != nil {
		return submit.Prepared{}, fmt.Errorf("fetch blockhash: %w", err)
	}
	tx, err := Compile(ctx, group, bh, table)
	if err != nil {
		return submit.Prepared{}, err
	}
	return submit.Prepared{
		Tx:        tx,
		Blockhash: bh,
		Label:     group.Label,
		Rebuild: func(ctx context.Context, fresh rpc.Blockhash) (*solana.Transaction, error) {
			return Compile(ctx, group, fresh, table)
		},
	}, nil
}
