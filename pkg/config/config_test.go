package config_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/solfleet/pumpfleet/pkg/config"
	"github.com/solfleet/pumpfleet/pkg/types"
)

func validConfig(t *testing.T) config.BotConfig {
	t.Helper()
	cfg := config.DefaultBotConfig()
	cfg.TokenMint = solana.NewWallet().PublicKey().String()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	cfg.PayerSecret = key.String()
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())
}

func TestValidateSlippageBounds(t *testing.T) {
	for _, slip := range []float64{0, -0.1, 0.51, 1} {
		cfg := validConfig(t)
		cfg.Slippage = slip
		require.ErrorIs(t, cfg.Validate(), types.ErrInvalidSlippage, "slippage %v", slip)
	}

	// the inclusive upper bound passes
	cfg := validConfig(t)
	cfg.Slippage = 0.5
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresMintAndPayer(t *testing.T) {
	cfg := validConfig(t)
	cfg.TokenMint = ""
	require.ErrorIs(t, cfg.Validate(), types.ErrMissingMint)

	cfg = validConfig(t)
	cfg.PayerSecret = ""
	require.ErrorIs(t, cfg.Validate(), types.ErrMissingPayer)
}

func TestValidateDistributeFloor(t *testing.T) {
	cfg := validConfig(t)
	cfg.DistributeAmountLamports = 1_000_000

	var confErr types.ConfigError
	require.ErrorAs(t, cfg.Validate(), &confErr)
}

func TestValidateSwapSizing(t *testing.T) {
	cfg := validConfig(t)
	cfg.SwapFraction = 0.9
	cfg.SwapJitter = 0.2
	require.Error(t, cfg.Validate())
}

func TestSlippageBps(t *testing.T) {
	cfg := validConfig(t)
	cfg.Slippage = 0.5
	require.Equal(t, uint64(5000), cfg.SlippageBps())

	cfg.Slippage = 0.01
	require.Equal(t, uint64(100), cfg.SlippageBps())
}
