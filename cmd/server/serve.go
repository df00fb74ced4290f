package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/jampad-booking/internal/config"
	"github.com/iliyamo/jampad-booking/internal/database"
	"github.com/iliyamo/jampad-booking/internal/handler"
	"github.com/iliyamo/jampad-booking/internal/middleware"
	"github.com/iliyamo/jampad-booking/internal/notify"
	"github.com/iliyamo/jampad-booking/internal/payment"
	"github.com/iliyamo/jampad-booking/internal/queue"
	"github.com/iliyamo/jampad-booking/internal/repository"
	"github.com/iliyamo/jampad-booking/internal/router"
	"github.com/iliyamo/jampad-booking/internal/service"
	"github.com/iliyamo/jampad-booking/internal/utils"
)

type serveOptions struct {
	audit    bool
	auditLog string
	migrate  bool
}

func runServe(parent context.Context, opts serveOptions) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	brokerURL := queue.BrokerURL()
	if opts.audit {
		consumer := queue.NewAuditConsumer(brokerURL, opts.auditLog)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("audit consumer stopped")
			}
		}()
	}

	provider, err := newProvider(cfg.Payment)
	if err != nil {
		return err
	}

	reservations := repository.NewReservationRepo(db)
	contacts := repository.NewContactRepo(db)
	svc := service.NewBookingService(
		cfg,
		reservations,
		provider,
		notify.FromConfig(cfg.Mail),
		queue.NewPublisher(brokerURL),
		repository.NewVenueLock(rdb, cfg.Booking.LockTTL, cfg.Booking.LockWait),
	)
	go svc.RunSweeper(ctx, cfg.Booking.SweepInterval)

	hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	secure := strings.EqualFold(cfg.Env, "prod")

	e := newEcho(cfg, db, rdb == nil)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	bookings := handler.NewBookingHandler(svc, handler.NewPendingCookie(cfg.SessionHashKey, cfg.SessionBlockKey, secure))
	router.RegisterPublic(e, &handler.VenueHandler{Cfg: cfg.Booking}, bookings, cache)
	router.RegisterBooking(e, bookings, &handler.ContactHandler{Store: contacts, Now: time.Now}, limit)
	router.RegisterAdmin(e, &handler.AdminHandler{
		Username:     cfg.AdminUser,
		PasswordHash: hash,
		JWTSecret:    cfg.JWTSecret,
		TokenTTLMin:  cfg.AccessTTLMin,
		SecureCookie: secure,
		Bookings:     reservations,
		Contacts:     contacts,
		Svc:          svc,
	}, cfg.JWTSecret, limit)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newEcho builds the server with the ambient middleware and probes.
func newEcho(cfg config.Config, db *sql.DB, redisDown bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(), middleware.Recover())
	if redisDown {
		log.Warn().Msg("redis unavailable: cache, rate limiting and booking lock disabled")
	}
	router.RegisterRoutes(e, func(ctx context.Context) error { return database.Ping(ctx, db) })
	return e
}

func newProvider(cfg config.PaymentConfig) (payment.Provider, error) {
	if !cfg.Enabled() {
		log.Warn().Msg("OMISE keys not set: payments disabled, only admin bookings can be created")
		return payment.Disabled{}, nil
	}
	return payment.NewOmiseProvider(cfg)
}
