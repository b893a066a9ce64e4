package types

import (
	"errors"
	"fmt"
)

// Sentinel errors grouped by recovery class.
var (
	// Configuration errors, rejected before any network call.
	ErrInvalidSlippage = errors.New("slippage must be in (0, 0.5]")
	ErrMissingMint     = errors.New("token mint is not configured")
	ErrMissingPayer    = errors.New("payer key is not configured")

	// State unavailable: a defined recovery path exists (create the
	// table, refresh the curve) and is tried exactly once.
	ErrStateUnavailable    = errors.New("on-chain state unavailable")
	ErrInvalidCurveState   = errors.New("curve has zero virtual reserves")
	ErrTableAbsent         = errors.New("lookup table absent")
	ErrTableNotRetrievable = errors.New("lookup table not retrievable after settle window")

	// Resource errors: the wallet or operation is skipped, never silent.
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEmptyWalletSet    = errors.New("no wallets found")

	// Delivery errors.
	ErrSizeExceeded        = errors.New("compiled transaction exceeds wire size ceiling")
	ErrSimulationRejected  = errors.New("simulation rejected transaction")
	ErrDeliveryFailed      = errors.New("bundle and direct delivery both exhausted")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrBlockhashExpired    = errors.New("blockhash validity window elapsed")
)

// ConfigError reports an invalid or missing configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config: %s - %s", e.Field, e.Message)
}

// NewConfigError creates a new configuration error.
func NewConfigError(field, message string) ConfigError {
	return ConfigError{Field: field, Message: message}
}

// SimulationError carries the raw program error and logs for diagnostics.
type SimulationError struct {
	Err  interface{}
	Logs []string
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed: %v", e.Err)
}

func (e *SimulationError) Unwrap() error {
	return ErrSimulationRejected
}

// IsRecoverable reports whether the error class allows the defined
// one-shot recovery path (re-fetching state) rather than surfacing.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrStateUnavailable) || errors.Is(err, ErrTableAbsent)
}
