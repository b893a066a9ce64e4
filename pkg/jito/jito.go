// Package jito is the bundle relay client. It rotates across the relay's
// regional endpoints to spread rate limits and exposes the narrow
// send/status surface the submission pipeline consumes.
package jito

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	jitorpc "github.com/jito-labs/jito-go-rpc"
)

// MainnetBlockEngines are the relay's regional endpoints. Rotating
// through them spreads requests so no single endpoint rate-limits us.
var MainnetBlockEngines = []string{
	"https://mainnet.block-engine.jito.wtf/api/v1",
	"https://amsterdam.mainnet.block-engine.jito.wtf/api/v1",
	"https://frankfurt.mainnet.block-engine.jito.wtf/api/v1",
	"https://ny.mainnet.block-engine.jito.wtf/api/v1",
	"https://tokyo.mainnet.block-engine.jito.wtf/api/v1",
}

// MainnetTipAccounts are the relay's published tip accounts. Using the
// static list avoids an RPC round-trip per bundle.
var MainnetTipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// RandomTipAccount picks a tip account from the static list.
func RandomTipAccount() solana.PublicKey {
	return MainnetTipAccounts[rand.Intn(len(MainnetTipAccounts))]
}

// Client wraps the relay RPC client with endpoint rotation and bounded
// retries on rate limiting.
type Client struct {
	endpoints    []string
	uuid         string
	currentIndex uint32
	maxRetries   int
	retryDelay   time.Duration
}

// NewClient builds a single-endpoint client. An empty endpoint falls
// back to the full mainnet rotation.
func NewClient(endpoint string, uuid string) *Client {
	if endpoint == "" {
		return NewClientWithEndpoints(nil, uuid)
	}
	return &Client{
		endpoints:  []string{endpoint},
		uuid:       uuid,
		maxRetries: 3,
		retryDelay: 200 * time.Millisecond,
	}
}

// NewClientWithEndpoints builds a round-robin client over the given
// endpoints, defaulting to the mainnet set.
func NewClientWithEndpoints(endpoints []string, uuid string) *Client {
	if len(endpoints) == 0 {
		endpoints = MainnetBlockEngines
	}
	return &Client{
		endpoints:  endpoints,
		uuid:       uuid,
		maxRetries: len(endpoints) + 2,
		retryDelay: 100 * time.Millisecond,
	}
}

// WithRetries overrides the retry count and delay.
func (c *Client) WithRetries(maxRetries int, retryDelay time.Duration) *Client {
	c.maxRetries = maxRetries
	c.retryDelay = retryDelay
	return c
}

func (c *Client) getNextClient() *jitorpc.JitoJsonRpcClient {
	idx := atomic.AddUint32(&c.currentIndex, 1)
	endpoint := c.endpoints[int(idx)%len(c.endpoints)]
	return jitorpc.NewJitoJsonRpcClient(endpoint, c.uuid)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "Rate limit") ||
		strings.Contains(errStr, "congested") ||
		strings.Contains(errStr, "429")
}

// SendBundle submits the transactions as one atomic bundle and returns
// the relay's bundle ID. Transactions must already be signed.
func (c *Client) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", fmt.Errorf("bundle requires at least one transaction")
	}

	txStrings := make([]string, 0, len(txs))
	for _, tx := range txs {
		txBytes, err := tx.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("marshal transaction: %w", err)
		}
		txStrings = append(txStrings, base64.StdEncoding.EncodeToString(txBytes))
	}

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		client := c.getNextClient()

		rawResp, err := client.SendBundle([][]string{txStrings})
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				time.Sleep(c.retryDelay)
				continue
			}
			return "", fmt.Errorf("send bundle: %w", err)
		}

		var bundleID string
		if err := json.Unmarshal(rawResp, &bundleID); err != nil {
			return "", fmt.Errorf("unmarshal bundle response: %w", err)
		}
		return bundleID, nil
	}
	return "", fmt.Errorf("send bundle failed after %d retries: %w", c.maxRetries, lastErr)
}

// GetBundleStatus returns the relay's confirmation status for one
// bundle, or empty string while it is still pending or unknown.
func (c *Client) GetBundleStatus(ctx context.Context, bundleID string) (string, error) {
	statuses, err := c.GetBundleStatuses(ctx, []string{bundleID})
	if err != nil {
		return "", err
	}
	if statuses == nil || len(statuses.Value) == 0 {
		return "", nil
	}
	status := statuses.Value[0]
	switch status.ConfirmationStatus {
	case "confirmed", "finalized":
		return status.ConfirmationStatus, nil
	}
	if status.Err.Ok == nil {
		return "failed", nil
	}
	return status.ConfirmationStatus, nil
}

// GetBundleStatuses returns raw relay statuses for a set of bundles.
func (c *Client) GetBundleStatuses(ctx context.Context, bundleIDs []string) (*jitorpc.BundleStatusResponse, error) {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		client := c.getNextClient()
		statuses, err := client.GetBundleStatuses(bundleIDs)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				time.Sleep(c.retryDelay)
				continue
			}
			return nil, fmt.Errorf("get bundle statuses: %w", err)
		}
		return statuses, nil
	}
	return nil, fmt.Errorf("get bundle statuses failed after %d retries: %w", c.maxRetries, lastErr)
}
