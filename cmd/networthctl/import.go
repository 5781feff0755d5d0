package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var importTradesCmd = &cobra.Command{
	Use:   "import-trades <account-id> <csv-file>",
	Short: "Import trades from a CSV file into an investment account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || accountID == 0 {
			return fmt.Errorf("invalid account id %q", args[0])
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		report, err := e.services.Imports.ImportTrades(cmd.Context(), uint(accountID), f)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var importHistoryCmd = &cobra.Command{
	Use:   "import-history <csv-file>",
	Short: "Import historical balances, creating unknown accounts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		report, err := e.services.Imports.ImportHistory(cmd.Context(), f)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var templateCmd = &cobra.Command{
	Use:   "trade-template",
	Short: "Print the trade CSV template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()
		return e.services.Imports.WriteTradeTemplate(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(importTradesCmd)
	rootCmd.AddCommand(importHistoryCmd)
	rootCmd.AddCommand(templateCmd)
}
