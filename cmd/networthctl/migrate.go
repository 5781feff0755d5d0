package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tropicaldog17/networth/internal/db"
	"github.com/tropicaldog17/networth/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log, err := logger.New()
		if err != nil {
			return err
		}
		defer log.Sync()

		database, err := db.Connect(db.NewConfig())
		if err != nil {
			return err
		}
		defer database.Close()

		applied, err := database.Migrate(log)
		if err != nil {
			return err
		}
		log.Info("migrations complete", zap.Int("applied", applied))
		fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", applied)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
