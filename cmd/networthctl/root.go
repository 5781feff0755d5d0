package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tropicaldog17/networth/internal/app"
	"github.com/tropicaldog17/networth/internal/config"
	"github.com/tropicaldog17/networth/internal/db"
	"github.com/tropicaldog17/networth/internal/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "networthctl",
	Short:         "Operate the net worth ledger from the command line",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.toml", "TOML config file.")
}

// env is an opened database with the full service graph over it.
type env struct {
	log      *zap.Logger
	database *db.DB
	services *app.Services
}

func (e *env) Close() {
	e.database.Close()
	e.log.Sync()
}

// openEnv connects and migrates so every command runs against a current schema.
func openEnv() (*env, error) {
	log, err := logger.New()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	database, err := db.Connect(db.NewConfig())
	if err != nil {
		return nil, err
	}
	if _, err := database.Migrate(log.Named("migrate")); err != nil {
		database.Close()
		return nil, err
	}
	return &env{
		log:      log,
		database: database,
		services: app.NewServices(cfg, database, nil, log),
	}, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
