// Package rpc wraps the solana-go client with retry, timeout, and rate
// limiting, and exposes the narrow blockchain-access boundary the fleet
// needs: account reads, balance reads, blockhash, simulate, send, status.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/solfleet/pumpfleet/pkg/config"
)

// Client wraps solana-go rpc.Client with retry, timeout, and rate limiting.
type Client struct {
	raw     *solanarpc.Client
	cfg     config.RPCConfig
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient builds a configured Client.
func NewClient(cfg config.RPCConfig) *Client {
	endpoint := cfg.ResolveRPCURL()
	rpcClient := solanarpc.New(endpoint)

	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst == 0 {
			burst = int(cfg.RateLimit.RPS * 2)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}

	log := cfg.Logger
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}

	return &Client{
		raw:     rpcClient,
		cfg:     cfg,
		limiter: limiter,
		log:     log,
	}
}

func (c *Client) commitment() solanarpc.CommitmentType {
	return solanarpc.CommitmentType(c.cfg.Commitment)
}

// Blockhash carries a recent blockhash together with its validity window.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// GetLatestBlockhash fetches the latest blockhash at the configured commitment.
func (c *Client) GetLatestBlockhash(ctx context.Context) (Blockhash, error) {
	var out Blockhash
	err := c.call(ctx, "getLatestBlockhash", func(ctx context.Context) error {
		res, err := c.raw.GetLatestBlockhash(ctx, c.commitment())
		if err != nil {
			return err
		}
		out = Blockhash{
			Hash:                 res.Value.Blockhash,
			LastValidBlockHeight: res.Value.LastValidBlockHeight,
		}
		return nil
	})
	return out, err
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var out uint64
	err := c.call(ctx, "getBalance", func(ctx context.Context) error {
		res, err := c.raw.GetBalance(ctx, account, c.commitment())
		if err != nil {
			return err
		}
		out = res.Value
		return nil
	})
	return out, err
}

// GetAccountInfo fetches raw account data; a nil result means not found.
func (c *Client) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.Account, error) {
	var out *solanarpc.Account
	err := c.call(ctx, "getAccountInfo", func(ctx context.Context) error {
		res, err := c.raw.GetAccountInfo(ctx, account)
		if err != nil {
			if errors.Is(err, solanarpc.ErrNotFound) {
				return nil
			}
			return err
		}
		if res != nil {
			out = res.Value
		}
		return nil
	})
	return out, err
}

// GetMultipleAccounts pulls several accounts in one round trip. The
// returned slice is positional; missing accounts are nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) ([]*solanarpc.Account, error) {
	var out []*solanarpc.Account
	err := c.call(ctx, "getMultipleAccounts", func(ctx context.Context) error {
		res, err := c.raw.GetMultipleAccountsWithOpts(ctx, accounts, &solanarpc.GetMultipleAccountsOpts{
			Commitment: c.commitment(),
		})
		if err != nil {
			return err
		}
		out = res.Value
		return nil
	})
	return out, err
}

// GetSlot returns the current slot at the given commitment.
func (c *Client) GetSlot(ctx context.Context, commitment solanarpc.CommitmentType) (uint64, error) {
	var out uint64
	err := c.call(ctx, "getSlot", func(ctx context.Context) error {
		var err error
		out, err = c.raw.GetSlot(ctx, commitment)
		return err
	})
	return out, err
}

// GetBlockHeight returns the current block height, used to bound
// confirmation polling against a blockhash validity window.
func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	var out uint64
	err := c.call(ctx, "getBlockHeight", func(ctx context.Context) error {
		var err error
		out, err = c.raw.GetBlockHeight(ctx, c.commitment())
		return err
	})
	return out, err
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error) {
	var sig solana.Signature
	err := c.call(ctx, "sendTransaction", func(ctx context.Context) error {
		var err error
		sig, err = c.raw.SendTransactionWithOpts(ctx, tx, opts)
		return err
	})
	return sig, err
}

// SimulateTransaction dry-runs a transaction.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts *solanarpc.SimulateTransactionOpts) (*solanarpc.SimulateTransactionResponse, error) {
	var res *solanarpc.SimulateTransactionResponse
	err := c.call(ctx, "simulateTransaction", func(ctx context.Context) error {
		var err error
		res, err = c.raw.SimulateTransactionWithOpts(ctx, tx, opts)
		return err
	})
	return res, err
}

// GetSignatureStatuses polls confirmation state for signatures.
func (c *Client) GetSignatureStatuses(ctx context.Context, sigs ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	var res *solanarpc.GetSignatureStatusesResult
	err := c.call(ctx, "getSignatureStatuses", func(ctx context.Context) error {
		var err error
		res, err = c.raw.GetSignatureStatuses(ctx, true, sigs...)
		return err
	})
	return res, err
}

func (c *Client) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx = c.withTimeout(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if !c.cfg.Retry.Enabled {
		return fn(ctx)
	}

	attempts := c.cfg.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		if !retryable(err) || i == attempts-1 {
			break
		}
		backoff := c.backoff(i)
		c.log.Debug().
			Str("op", op).
			Int("attempt", i+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("rpc retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}

func (c *Client) withTimeout(ctx context.Context) context.Context {
	if c.cfg.Timeout <= 0 {
		return ctx
	}
	ctxWithTimeout, _ := context.WithTimeout(ctx, c.cfg.Timeout)
	return ctxWithTimeout
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := c.cfg.Retry.InitialBackoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > c.cfg.Retry.MaxBackoff && c.cfg.Retry.MaxBackoff > 0 {
			delay = c.cfg.Retry.MaxBackoff
			break
		}
	}
	if c.cfg.Retry.Jitter {
		jitter := rand.Int63n(int64(delay / 2))
		delay = delay/2 + time.Duration(jitter)
	}
	return delay
}

func retryable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Conservative: retry on all other errors to keep liveness unless caller decides otherwise.
	return true
}
