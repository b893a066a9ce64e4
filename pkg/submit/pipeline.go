// Package submit delivers compiled transactions: simulate first, then
// bundle relay with bounded status polling, then direct broadcast as the
// fallback path, confirming against the blockhash validity window.
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/solfleet/pumpfleet/pkg/rpc"
	"github.com/solfleet/pumpfleet/pkg/types"
)

// Path names the delivery route that carried a transaction.
type Path string

const (
	PathBundle Path = "bundle"
	PathDirect Path = "direct"
)

// Status is the terminal confirmation state of a delivery.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Result reports a delivery outcome to the caller.
type Result struct {
	Signature solana.Signature
	Path      Path
	Status    Status
	BundleID  string
}

// ChainClient is the blockchain-access slice the pipeline consumes.
type ChainClient interface {
	SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts *solanarpc.SimulateTransactionOpts) (*solanarpc.SimulateTransactionResponse, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, sigs ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (rpc.Blockhash, error)
}

// RelayClient is the bundle relay slice the pipeline consumes.
type RelayClient interface {
	SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
	// GetBundleStatus returns the relay's confirmation_status for a
	// bundle, or empty string while the bundle is still pending.
	GetBundleStatus(ctx context.Context, bundleID string) (string, error)
}

// Policy bounds a retried or polled interaction. One policy object per
// concern replaces scattered magic constants.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
	Deadline    time.Duration
}

// DefaultBundlePolicy matches the relay's observed settle behavior:
// poll once a second, give up after 40 checks.
func DefaultBundlePolicy() Policy {
	return Policy{MaxAttempts: 40, Interval: time.Second, Deadline: 40 * time.Second}
}

// DefaultDirectPolicy bounds direct broadcast retries and confirmation.
func DefaultDirectPolicy() Policy {
	return Policy{MaxAttempts: 3, Interval: 500 * time.Millisecond, Deadline: 60 * time.Second}
}

// Prepared is one compiled, signed transaction plus what the pipeline
// needs to rebuild it when its blockhash ages out before fallback.
type Prepared struct {
	Tx        *solana.Transaction
	Blockhash rpc.Blockhash
	Label     string

	// Rebuild re-compiles and re-signs against a fresh blockhash. A
	// fallback with a stale validity window calls this instead of ever
	// re-broadcasting the original signed bytes.
	Rebuild func(ctx context.Context, fresh rpc.Blockhash) (*solana.Transaction, error)
}

// Pipeline is the simulate → bundle → poll → fallback state machine.
type Pipeline struct {
	chain  ChainClient
	relay  RelayClient
	bundle Policy
	direct Policy
	log    zerolog.Logger
}

// NewPipeline wires a pipeline. relay may be nil, which disables the
// bundle path entirely.
func NewPipeline(chain ChainClient, relay RelayClient, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		chain:  chain,
		relay:  relay,
		bundle: DefaultBundlePolicy(),
		direct: DefaultDirectPolicy(),
		log:    log,
	}
}

// WithPolicies overrides the bundle and direct policies.
func (p *Pipeline) WithPolicies(bundle, direct Policy) *Pipeline {
	p.bundle = bundle
	p.direct = direct
	return p
}

// Simulate dry-runs a transaction with signature verification disabled
// and the blockhash replaced. A program error is terminal for the
// transaction: simulation failures indicate structural problems that a
// blind retry would reproduce.
func (p *Pipeline) Simulate(ctx context.Context, tx *solana.Transaction) error {
	res, err := p.chain.SimulateTransaction(ctx, tx, &solanarpc.SimulateTransactionOpts{
		SigVerify:              false,
		ReplaceRecentBlockhash: true,
		Commitment:             solanarpc.CommitmentConfirmed,
	})
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	if res == nil || res.Value == nil {
		return fmt.Errorf("simulate: empty response")
	}
	if res.Value.Err != nil {
		return &types.SimulationError{Err: res.Value.Err, Logs: res.Value.Logs}
	}
	return nil
}

// Deliver runs the full state machine for one prepared transaction.
// useBundle selects bundle-first delivery; the direct path is always
// the fallback. The returned Result carries the terminal state; the
// error is non-nil only when every path is exhausted or simulation
// rejected the transaction.
func (p *Pipeline) Deliver(ctx context.Context, prep Prepared, useBundle bool) (Result, error) {
	if err := p.Simulate(ctx, prep.Tx); err != nil {
		var simErr *types.SimulationError
		if errors.As(err, &simErr) {
			p.log.Error().
				Str("label", prep.Label).
				Interface("err", simErr.Err).
				Strs("logs", simErr.Logs).
				Msg("simulation rejected, discarding")
		}
		return Result{Status: StatusFailed}, err
	}

	if useBundle && p.relay != nil {
		res, err := p.deliverBundle(ctx, prep)
		if err == nil {
			return res, nil
		}
		p.log.Warn().Str("label", prep.Label).Err(err).Msg("bundle path failed, falling back to direct")
	}

	return p.deliverDirect(ctx, prep)
}

func (p *Pipeline) deliverBundle(ctx context.Context, prep Prepared) (Result, error) {
	bundleID, err := p.relay.SendBundle(ctx, []*solana.Transaction{prep.Tx})
	if err != nil {
		return Result{}, fmt.Errorf("send bundle: %w", err)
	}
	if bundleID == "" {
		return Result{}, fmt.Errorf("relay returned no bundle id")
	}

	result := Result{Path: PathBundle, BundleID: bundleID, Status: StatusPending}
	if len(prep.Tx.Signatures) > 0 {
		result.Signature = prep.Tx.Signatures[0]
	}

	attempts := 0
	err = PollUntil(ctx, p.bundle.Interval, p.bundle.Deadline, func(ctx context.Context) (bool, error) {
		attempts++
		if attempts > p.bundle.MaxAttempts {
			return false, types.ErrConfirmationTimeout
		}
		status, err := p.relay.GetBundleStatus(ctx, bundleID)
		if err != nil {
			// transient relay errors keep polling
			return false, nil
		}
		switch status {
		case "confirmed", "finalized":
			return true, nil
		case "", "pending":
			return false, nil
		default:
			return false, fmt.Errorf("bundle %s terminal status %q", bundleID, status)
		}
	})
	if err != nil {
		return Result{}, fmt.Errorf("bundle %s: %w", bundleID, err)
	}

	result.Status = StatusConfirmed
	p.log.Info().Str("label", prep.Label).Str("bundle", bundleID).Msg("bundle confirmed")
	return result, nil
}

func (p *Pipeline) deliverDirect(ctx context.Context, prep Prepared) (Result, error) {
	tx := prep.Tx
	window := prep.Blockhash

	// Never re-broadcast signed bytes past their validity window: when
	// the original blockhash has likely expired, rebuild against a
	// fresh one so the attempt is a genuinely new transaction.
	if prep.Rebuild != nil {
		expired, err := p.windowExpired(ctx, window)
		if err == nil && expired {
			fresh, err := p.chain.GetLatestBlockhash(ctx)
			if err != nil {
				return Result{Status: StatusFailed}, fmt.Errorf("refresh blockhash: %w", err)
			}
			rebuilt, err := prep.Rebuild(ctx, fresh)
			if err != nil {
				return Result{Status: StatusFailed}, fmt.Errorf("rebuild for fallback: %w", err)
			}
			tx = rebuilt
			window = fresh
		}
	}

	opts := solanarpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: solanarpc.CommitmentConfirmed,
	}

	var sig solana.Signature
	var lastErr error
	sent := false
	for i := 0; i < p.direct.MaxAttempts; i++ {
		s, err := p.chain.SendTransaction(ctx, tx, opts)
		if err == nil {
			sig = s
			sent = true
			break
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return Result{Status: StatusFailed}, ctx.Err()
		case <-time.After(p.direct.Interval):
		}
	}
	if !sent {
		return Result{Status: StatusFailed}, fmt.Errorf("%w: %v", types.ErrDeliveryFailed, lastErr)
	}

	result := Result{Signature: sig, Path: PathDirect, Status: StatusPending}
	if err := p.confirm(ctx, sig, window); err != nil {
		result.Status = StatusFailed
		return result, fmt.Errorf("%w: confirm %s: %v", types.ErrDeliveryFailed, sig, err)
	}
	result.Status = StatusConfirmed
	p.log.Info().Str("label", prep.Label).Stringer("sig", sig).Msg("direct broadcast confirmed")
	return result, nil
}

// confirm polls signature status until confirmed, failed, or the
// blockhash validity window closes.
func (p *Pipeline) confirm(ctx context.Context, sig solana.Signature, window rpc.Blockhash) error {
	return PollUntil(ctx, p.direct.Interval, p.direct.Deadline, func(ctx context.Context) (bool, error) {
		res, err := p.chain.GetSignatureStatuses(ctx, sig)
		if err != nil {
			return false, nil // transient
		}
		if res != nil && len(res.Value) > 0 && res.Value[0] != nil {
			status := res.Value[0]
			if status.Err != nil {
				return false, fmt.Errorf("transaction failed: %v", status.Err)
			}
			if status.ConfirmationStatus == solanarpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == solanarpc.ConfirmationStatusFinalized {
				return true, nil
			}
		}
		if window.LastValidBlockHeight > 0 {
			expired, err := p.windowExpired(ctx, window)
			if err == nil && expired {
				return false, types.ErrBlockhashExpired
			}
		}
		return false, nil
	})
}

func (p *Pipeline) windowExpired(ctx context.Context, window rpc.Blockhash) (bool, error) {
	if window.LastValidBlockHeight == 0 {
		return false, nil
	}
	height, err := p.chain.GetBlockHeight(ctx)
	if err != nil {
		return false, err
	}
	return height > window.LastValidBlockHeight, nil
}
