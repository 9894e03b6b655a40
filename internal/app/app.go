package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/seatcore/internal/config"
	"github.com/kirinyoku/seatcore/internal/postgres"
	"github.com/kirinyoku/seatcore/internal/redis"
	postgresrepo "github.com/kirinyoku/seatcore/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/seatcore/internal/repository/redis"
	"github.com/kirinyoku/seatcore/internal/rules"
	"github.com/kirinyoku/seatcore/internal/service"
	"github.com/kirinyoku/seatcore/internal/service/reservation"
	httpgin "github.com/kirinyoku/seatcore/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(context.Background(), redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Repositories
	store := postgresrepo.NewStore(pgxPool)
	res := redisrepo.NewReservationStore(rdb)
	cache := redisrepo.NewCache(rdb)
	pubsub := redisrepo.NewSeatEventsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "rl", cfg.Rate.Limit, cfg.Rate.Window)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	// Services
	services := service.NewServices(store, res, cache, pubsub, limiter, service.Config{
		Reservation: reservation.Config{
			MinHoldTTL: cfg.Holds.MinTTL,
			MaxHoldTTL: cfg.Holds.MaxTTL,
			Rules: rules.Config{
				MaxSeatsPerHolder:  cfg.Rules.MaxSeatsPerHolder,
				DisableOrphanCheck: cfg.Rules.DisableOrphanCheck,
			},
		},
	})

	// Gin router
	router := httpgin.NewRouter(services, idempotencyStore, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		services: services,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Expiry sweep. Holds whose deadline has passed are released in
	// batches; a failing pass is logged and retried on the next tick.
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Sweep.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				released, err := a.services.Reservation.Expire(gCtx, int64(a.cfg.Sweep.Batch))
				if err != nil {
					a.logger.Error("expiry sweep failed", "error", err)
					continue
				}
				if released > 0 {
					a.logger.Info("expiry sweep released holds", "count", released)
				}
			}
		}
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
