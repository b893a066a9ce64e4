package config

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/solfleet/pumpfleet/pkg/types"
)

// Network defines the target Solana cluster.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
	NetworkCustom  Network = "custom"
)

// DefaultRPCURL returns the standard RPC endpoint for a known network.
func DefaultRPCURL(network Network) string {
	switch network {
	case NetworkMainnet:
		return "https://api.mainnet-beta.solana.com"
	case NetworkDevnet:
		return "https://api.devnet.solana.com"
	default:
		return ""
	}
}

// RetryConfig controls RPC retry behavior.
type RetryConfig struct {
	Enabled        bool
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Jitter         bool
}

// RateLimitConfig throttles outbound RPC calls.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RPCConfig aggregates runtime settings for RPC usage.
type RPCConfig struct {
	Network    Network
	RPCURL     string
	Commitment string
	Timeout    time.Duration
	Retry      RetryConfig
	RateLimit  RateLimitConfig
	Logger     zerolog.Logger
}

// DefaultRPCConfig yields production-safe defaults (mainnet, confirmed commitment).
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		Network:    NetworkMainnet,
		RPCURL:     DefaultRPCURL(NetworkMainnet),
		Commitment: "confirmed",
		Timeout:    20 * time.Second,
		Retry: RetryConfig{
			Enabled:        true,
			MaxAttempts:    3,
			InitialBackoff: 150 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Jitter:         true,
		},
		RateLimit: RateLimitConfig{
			RPS:   8,
			Burst: 16,
		},
		Logger: zerolog.New(io.Discard),
	}
}

// ResolveRPCURL returns RPCURL if set, otherwise falls back to network defaults.
func (c RPCConfig) ResolveRPCURL() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	return DefaultRPCURL(c.Network)
}

// GroupSizes sets the wallet partition size per operation. Swap groups
// are small because every wallet contributes several instructions.
type GroupSizes struct {
	Distribute int
	Collect    int
	Swap       int
	SellAll    int
}

// BotConfig holds the fleet/trading parameters sourced from the
// environment. All lamport values are raw lamports.
type BotConfig struct {
	RPC RPCConfig

	// TokenMint is the pump.fun token contract address (base58).
	TokenMint string

	// PayerSecret is the main wallet secret key (base58). Never logged.
	PayerSecret string

	WalletFile string
	LUTFile    string

	DistributeAmountLamports uint64
	TipLamports              uint64

	// ComputeUnitPriceMicroLamports is the priority fee attached to every
	// swap transaction.
	ComputeUnitPriceMicroLamports uint64

	// Slippage is the tolerated fractional deviation, validated to (0, 0.5].
	Slippage float64

	// Overflow redirect: a wallet above the threshold sends
	// balance - OverflowKeepLamports to the sink instead of swapping.
	OverflowThresholdLamports uint64
	OverflowKeepLamports      uint64
	OverflowSink              string

	// PayerMaxLamports caps the main wallet during distribute; the excess
	// above it is redirected to the sink.
	PayerMaxLamports uint64

	// Swap sizing: spend Fraction + rand·Jitter of the spendable balance.
	SwapFraction float64
	SwapJitter   float64

	Groups GroupSizes

	// CycleSleep separates full swap-cycle passes.
	CycleSleep time.Duration

	// LUTSettleDelay is how long a freshly created table needs before it
	// becomes externally readable. A correctness requirement, not tuning.
	LUTSettleDelay  time.Duration
	LUTPollInterval time.Duration
	LUTPollDeadline time.Duration

	RelayEndpoint string
}

// DefaultBotConfig returns the operational defaults. The overflow and
// sizing constants are empirically chosen and deliberately configuration,
// not derived.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		RPC:                           DefaultRPCConfig(),
		WalletFile:                    "wallets.json",
		LUTFile:                       "lut.json",
		DistributeAmountLamports:      4_000_000, // 0.004 SOL
		TipLamports:                   1_000_000,
		ComputeUnitPriceMicroLamports: 100_000,
		Slippage:                      0.5,
		OverflowThresholdLamports:     500_000_000, // 0.5 SOL
		OverflowKeepLamports:          5_000_000,   // 0.005 SOL
		PayerMaxLamports:              10_000_000_000,
		SwapFraction:                  0.6,
		SwapJitter:                    0.2,
		Groups: GroupSizes{
			Distribute: 12,
			Collect:    8,
			Swap:       3,
			SellAll:    4,
		},
		CycleSleep:      30 * time.Second,
		LUTSettleDelay:  25 * time.Second,
		LUTPollInterval: 2 * time.Second,
		LUTPollDeadline: 60 * time.Second,
	}
}

// Load reads .env (if present) then the environment on top of defaults.
func Load() (BotConfig, error) {
	_ = godotenv.Load()

	cfg := DefaultBotConfig()
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.RPC.RPCURL = v
	}
	cfg.PayerSecret = os.Getenv("PRIVATE_KEY")
	cfg.TokenMint = os.Getenv("TOKEN_MINT")
	if v := os.Getenv("OVERFLOW_SINK"); v != "" {
		cfg.OverflowSink = v
	}
	if v := os.Getenv("JITO_RELAY_URL"); v != "" {
		cfg.RelayEndpoint = v
	}
	if v, ok := envUint("JITO_TIP_AMOUNT_LAMPORTS"); ok {
		cfg.TipLamports = v
	}
	if v, ok := envUint("DISTRIBUTE_AMOUNT_LAMPORTS"); ok {
		cfg.DistributeAmountLamports = v
	}
	if v, ok := envUint("COMPUTE_UNIT_PRICE_MICROLAMPORTS"); ok {
		cfg.ComputeUnitPriceMicroLamports = v
	}
	if v, ok := envFloat("SLIPPAGE"); ok {
		cfg.Slippage = v
	}
	if v, ok := envUint("CYCLE_SLEEP_SECONDS"); ok {
		cfg.CycleSleep = time.Duration(v) * time.Second
	}

	return cfg, cfg.Validate()
}

// Validate rejects configuration errors before any network call.
func (c BotConfig) Validate() error {
	if c.Slippage <= 0 || c.Slippage > 0.5 {
		return types.ErrInvalidSlippage
	}
	if c.TokenMint == "" {
		return types.ErrMissingMint
	}
	if c.PayerSecret == "" {
		return types.ErrMissingPayer
	}
	if c.DistributeAmountLamports <= 2_039_280 {
		return types.NewConfigError("DISTRIBUTE_AMOUNT_LAMPORTS",
			"must exceed the token account rent floor to cover fees")
	}
	if c.SwapFraction <= 0 || c.SwapFraction+c.SwapJitter > 1 {
		return types.NewConfigError("swap sizing", "fraction+jitter must lie in (0, 1]")
	}
	return nil
}

// SlippageBps converts the validated fraction to basis points for
// integer pricing math.
func (c BotConfig) SlippageBps() uint64 {
	return uint64(c.Slippage * 10_000)
}

func envUint(key string) (uint64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
