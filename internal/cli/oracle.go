package cli

import (
	"github.com/spf13/cobra"
)

var oracleCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Print the oracle price normalised to the target precision",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Oracle(cmd.Context())
	},
}

func init() {
	oracleCmd.Flags().String("market", "", "Perp market whose oracle is used when --oracle is unset")
	oracleCmd.Flags().String("oracle", "", "Oracle account address (base58)")
	oracleCmd.Flags().Uint64("target-precision", 0, "Target fixed-point precision (defaults to config, 1e6)")
	oracleCmd.Flags().Uint64("divisor", 0, "Divisor applied to the oracle's native precision (defaults to config, 1)")
}
