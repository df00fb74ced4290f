package main // Entry point package

import (
	"context"
	"database/sql"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/jampad-booking/internal/config"
	"github.com/iliyamo/jampad-booking/internal/database"
	"github.com/iliyamo/jampad-booking/internal/logging"
)

func main() {
	root := &cobra.Command{
		Use:           "jampad",
		Short:         "Jam pad booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running the binary without a subcommand starts the server.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), serveOptions{audit: true})
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSweepCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// bootstrap loads .env (if present) and the configuration, installs the
// global logger and opens the database.
func bootstrap() (config.Config, *sql.DB, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env")
	}
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}
