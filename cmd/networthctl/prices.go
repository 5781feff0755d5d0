package main

import (
	"github.com/spf13/cobra"

	"github.com/tropicaldog17/networth/internal/models"
)

var refreshPricesCmd = &cobra.Command{
	Use:   "refresh-prices [TICKER...]",
	Short: "Fetch current market prices",
	Long:  "Fetches quotes for the given tickers, or for every held ticker when none are given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		var report *models.RefreshReport
		if len(args) == 0 {
			report, err = e.services.Prices.RefreshHeld(cmd.Context())
		} else {
			report, err = e.services.Prices.RefreshPrices(cmd.Context(), args)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(refreshPricesCmd)
}
