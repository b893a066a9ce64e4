package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solfleet/pumpfleet/pkg/bot"
	"github.com/solfleet/pumpfleet/pkg/config"
	"github.com/solfleet/pumpfleet/pkg/fleet"
	"github.com/solfleet/pumpfleet/pkg/jito"
	"github.com/solfleet/pumpfleet/pkg/lut"
	"github.com/solfleet/pumpfleet/pkg/rpc"
	"github.com/solfleet/pumpfleet/pkg/submit"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalOpts struct {
	rpcURL        string
	commitment    string
	walletFile    string
	maxWallets    int
	retryAttempts int
	rateLimitRPS  float64
	logLevel      string
	timeoutSec    int
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:   "pumpfleet",
		Short: "Wallet fleet trading bot for pump.fun bonding curves",
	}

	root.PersistentFlags().StringVar(&opts.rpcURL, "rpc-url", "", "RPC endpoint (default from env/mainnet)")
	root.PersistentFlags().StringVar(&opts.commitment, "commitment", "", "RPC commitment level")
	root.PersistentFlags().StringVar(&opts.walletFile, "wallet-file", "", "path to the wallet store")
	root.PersistentFlags().IntVar(&opts.maxWallets, "max-wallets", 0, "cap on wallets loaded from the store (0 = all)")
	root.PersistentFlags().IntVar(&opts.retryAttempts, "retry-attempts", 3, "RPC retry attempts")
	root.PersistentFlags().Float64Var(&opts.rateLimitRPS, "rate-limit-rps", 8, "rate limit RPS (0 to disable)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	root.PersistentFlags().IntVar(&opts.timeoutSec, "timeout-sec", 20, "RPC timeout seconds")

	root.AddCommand(
		newWalletsCmd(opts),
		newLUTCmd(opts),
		newDistributeCmd(opts),
		newCollectCmd(opts),
		newSwapCmd(opts),
		newSellAllCmd(opts),
		newCurveCmd(opts),
	)

	return root
}

// runtime wires every layer the commands share.
type runtime struct {
	cfg     config.BotConfig
	chain   *rpc.Client
	relay   *jito.Client
	deliver *submit.Pipeline
	tables  *lut.Manager
	payer   *fleet.Wallet
	wallets []*fleet.Wallet
	bot     *bot.Bot
	log     zerolog.Logger
}

func loadConfig(cmd *cobra.Command, opts *globalOpts) (config.BotConfig, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.BotConfig{}, zerolog.Nop(), err
	}
	if opts.rpcURL != "" {
		cfg.RPC.RPCURL = opts.rpcURL
	}
	if opts.commitment != "" {
		cfg.RPC.Commitment = opts.commitment
	}
	if opts.walletFile != "" {
		cfg.WalletFile = opts.walletFile
	}
	cfg.RPC.Retry.MaxAttempts = opts.retryAttempts
	cfg.RPC.RateLimit.RPS = opts.rateLimitRPS
	if opts.timeoutSec > 0 {
		cfg.RPC.Timeout = time.Duration(opts.timeoutSec) * time.Second
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(parseLogLevel(opts.logLevel)).
		With().Timestamp().Logger()
	cfg.RPC.Logger = log

	return cfg, log, nil
}

func newRuntime(cmd *cobra.Command, opts *globalOpts) (*runtime, error) {
	cfg, log, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	chain := rpc.NewClient(cfg.RPC)
	relay := jito.NewClient(cfg.RelayEndpoint, "").
		WithRetries(opts.retryAttempts, 200*time.Millisecond)
	deliver := submit.NewPipeline(chain, relay, log)

	payer, err := fleet.FromBase58(cfg.PayerSecret)
	if err != nil {
		return nil, fmt.Errorf("load payer: %w", err)
	}
	wallets, err := fleet.Load(cfg.WalletFile, opts.maxWallets)
	if err != nil {
		return nil, err
	}

	tables := lut.NewManager(chain, deliver, payer, cfg, log)
	b, err := bot.New(chain, deliver, tables, payer, wallets, cfg, log)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:     cfg,
		chain:   chain,
		relay:   relay,
		deliver: deliver,
		tables:  tables,
		payer:   payer,
		wallets: wallets,
		bot:     b,
		log:     log,
	}, nil
}

func parseLogLevel(lvl string) zerolog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
