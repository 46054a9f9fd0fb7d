package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fundingwatch/internal/app"
	"fundingwatch/internal/config"
	"fundingwatch/internal/logging"
)

var (
	cfgFile   string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:           "fundingwatch",
	Short:         "Estimate Drift perp funding rates from on-chain TWAPs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		appHandle.Out = cmd.OutOrStdout()
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override log level defined in config")
	rootCmd.PersistentFlags().String("rpc-url", "", "Solana RPC endpoint (defaults to RPC_URL)")

	rootCmd.AddCommand(fundingCmd)
	rootCmd.AddCommand(oracleCmd)
	rootCmd.AddCommand(versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}
