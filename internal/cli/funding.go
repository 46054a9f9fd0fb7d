package cli

import (
	"github.com/spf13/cobra"

	"fundingwatch/internal/app"
)

var fundingWithOracle bool

var fundingCmd = &cobra.Command{
	Use:   "funding",
	Short: "Print the funding-rate estimate for the configured perp market",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Funding(cmd.Context(), app.FundingOptions{WithOracle: fundingWithOracle})
	},
}

func init() {
	fundingCmd.Flags().String("market", "", "Perp market account address (base58)")
	fundingCmd.Flags().String("oracle", "", "Oracle account to report alongside the estimate (base58)")
	fundingCmd.Flags().BoolVar(&fundingWithOracle, "with-oracle", false, "Report the market's own oracle when --oracle is unset")
}
