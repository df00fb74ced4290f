package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/jampad-booking/internal/database"
	"github.com/iliyamo/jampad-booking/internal/payment"
	"github.com/iliyamo/jampad-booking/internal/repository"
	"github.com/iliyamo/jampad-booking/internal/service"
)

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.audit, "audit", true, "consume booking.confirmed events into the audit log")
	cmd.Flags().StringVar(&opts.auditLog, "audit-log", "", "audit log path (default logs/booking.log)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			log.Info().Msg("schema up to date")
			return nil
		},
	}
}

// newSweepCmd removes lapsed pending reservations once and exits, for
// deployments that run the sweep from cron instead of in process.
func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired pending reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()
			svc := service.NewBookingService(cfg, repository.NewReservationRepo(db), payment.Disabled{}, nil, nil, nil)
			n, err := svc.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int64("removed", n).Msg("sweep finished")
			return nil
		},
	}
}
