package main

import (
	"github.com/spf13/cobra"
)

var recalcAccounts []uint

var recalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Rebuild derived balance snapshots and the net worth series",
	Long: `Replays every trade and rebuilds computed snapshots, then the net worth
series. With --account only the named accounts are replayed; net worth is
always rebuilt in full.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		report, err := e.services.Reconciler.RecomputeAll(cmd.Context(), recalcAccounts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(recalculateCmd)
	recalculateCmd.Flags().UintSliceVar(&recalcAccounts, "account", nil, "Account id to recompute (repeatable).")
}
