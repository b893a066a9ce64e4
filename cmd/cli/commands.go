package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solfleet/pumpfleet/pkg/constants"
	"github.com/solfleet/pumpfleet/pkg/fleet"
)

func newWalletsCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallets",
		Short: "Manage the wallet fleet store",
	}

	var count int
	gen := &cobra.Command{
		Use:   "generate",
		Short: "Generate a fresh wallet store (refuses to overwrite)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			wallets, err := fleet.Generate(count, cfg.WalletFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d wallets into %s\n", len(wallets), cfg.WalletFile)
			return nil
		},
	}
	gen.Flags().IntVar(&count, "count", 20, "number of wallets to generate")

	show := &cobra.Command{
		Use:   "show",
		Short: "List wallet addresses and balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			wallets, err := fleet.RefreshBalances(cmd.Context(), rt.chain, rt.wallets)
			if err != nil {
				return err
			}
			var total uint64
			for i, w := range wallets {
				total += w.Lamports
				fmt.Fprintf(cmd.OutOrStdout(), "%3d %s %d lamports\n", i, w.PublicKey(), w.Lamports)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total %d lamports (%.6f SOL)\n",
				total, float64(total)/float64(constants.LamportsPerSOL))
			return nil
		},
	}

	cmd.AddCommand(gen, show)
	return cmd
}

func newLUTCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lut",
		Short: "Manage the fleet's address lookup table",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create the lookup table and register the fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			table, err := rt.bot.CreateOrLoadLookupTable(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %s holds %d addresses\n", table.Address, len(table.Addresses))
			return nil
		},
	}

	extend := &cobra.Command{
		Use:   "extend",
		Short: "Top the lookup table up with any missing fleet addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			table, err := rt.tables.Load(cmd.Context())
			if err != nil {
				return err
			}
			if table == nil {
				return fmt.Errorf("no lookup table yet, run lut create first")
			}
			table, err = rt.bot.CreateOrLoadLookupTable(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %s holds %d addresses\n", table.Address, len(table.Addresses))
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the persisted lookup table",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			table, err := rt.tables.Load(cmd.Context())
			if err != nil {
				return err
			}
			if table == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no lookup table")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %s\n", table.Address)
			for i, a := range table.Addresses {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d %s\n", i, a)
			}
			return nil
		},
	}

	cmd.AddCommand(create, extend, show)
	return cmd
}

func newDistributeCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "distribute",
		Short: "Fan the stake out from the payer to every wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			out, err := rt.bot.Distribute(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered %d groups, skipped %d\n", out.Delivered, out.Skipped)
			return nil
		},
	}
}

func newCollectCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Sweep every wallet balance back to the payer",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			out, err := rt.bot.Collect(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered %d groups, skipped %d\n", out.Delivered, out.Skipped)
			return nil
		},
	}
}

func newSwapCmd(opts *globalOpts) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Run buy-sell cycles until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			// An interrupt closes stop rather than cancelling ctx, so
			// the cycle in flight finishes before the loop exits.
			stop := make(chan struct{})
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigs)
			go func() {
				<-sigs
				close(stop)
			}()

			if _, err := rt.bot.CreateOrLoadLookupTable(ctx); err != nil {
				return err
			}
			if once {
				out, err := rt.bot.RunSwapCycle(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "delivered %d groups, skipped %d wallets\n", out.Delivered, out.Skipped)
				return nil
			}
			return rt.bot.RunSwapLoop(ctx, stop)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}

func newSellAllCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "sellall",
		Short: "Liquidate every residual token position",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			out, err := rt.bot.SellAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered %d groups, skipped %d\n", out.Delivered, out.Skipped)
			return nil
		},
	}
}

func newCurveCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "curve",
		Short: "Show the bonding curve state for the configured mint",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			state, err := rt.bot.RefreshCurveState(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mint            %s\n", state.TokenMint)
			fmt.Fprintf(out, "bonding curve   %s\n", state.BondingCurve)
			fmt.Fprintf(out, "creator vault   %s\n", state.CreatorVault)
			fmt.Fprintf(out, "virtual tokens  %d\n", state.VirtualTokenReserves)
			fmt.Fprintf(out, "virtual native  %d\n", state.VirtualNativeReserves)
			fmt.Fprintf(out, "complete        %v\n", state.Complete)
			return nil
		},
	}
}
