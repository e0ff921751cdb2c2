package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/aridelgado/blindbox-backend/api/routes"
	"github.com/aridelgado/blindbox-backend/internal/accounts"
	"github.com/aridelgado/blindbox-backend/internal/cart"
	"github.com/aridelgado/blindbox-backend/internal/catalog"
	"github.com/aridelgado/blindbox-backend/internal/delivery"
	"github.com/aridelgado/blindbox-backend/internal/orders"
	"github.com/aridelgado/blindbox-backend/internal/payout"
	"github.com/aridelgado/blindbox-backend/internal/refunds"
	"github.com/aridelgado/blindbox-backend/internal/roles"
	"github.com/aridelgado/blindbox-backend/pkg/auth/session"
	"github.com/aridelgado/blindbox-backend/pkg/config"
	"github.com/aridelgado/blindbox-backend/pkg/db"
	"github.com/aridelgado/blindbox-backend/pkg/instance"
	"github.com/aridelgado/blindbox-backend/pkg/logger"
	"github.com/aridelgado/blindbox-backend/pkg/metrics"
	"github.com/aridelgado/blindbox-backend/pkg/migrate"
	"github.com/aridelgado/blindbox-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	accountsRepo := accounts.NewRepository(dbClient.DB())
	accountsService, err := accounts.NewService(accountsRepo, sessionManager, cfg.JWT, cfg.Password, cfg.Owner)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	owner, err := accountsService.EnsureOwner(context.Background())
	if err != nil {
		logg.Error(context.Background(), "failed to seed owner account", err)
		os.Exit(1)
	}
	logg.Info(logg.WithFields(context.Background(), map[string]any{"owner_id": owner.ID}), "owner account ready")

	rolesService, err := roles.NewService(accountsRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create roles service", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo, rolesService, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	commerceMetrics := metrics.NewCommerceMetrics(prometheus.DefaultRegisterer)

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), catalogRepo, dbClient, commerceMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	deliveryService, err := delivery.NewService(delivery.NewRepository(dbClient.DB()), rolesService, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery service", err)
		os.Exit(1)
	}

	disburser, err := payout.NewSimulator(cfg.Payout)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout simulator", err)
		os.Exit(1)
	}

	refundsService, err := refunds.NewService(refunds.NewRepository(dbClient.DB()), rolesService, disburser, dbClient, commerceMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			accountsService,
			rolesService,
			catalogService,
			cartService,
			ordersService,
			deliveryService,
			refundsService,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithFields(ctx, map[string]any{"signal": sig.String()}), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		shutdownErr := server.Shutdown(shutdownCtx)
		shutdownErr = multierr.Append(shutdownErr, redisClient.Close())
		shutdownErr = multierr.Append(shutdownErr, dbClient.Close())
		if shutdownErr != nil {
			logg.Error(ctx, "shutdown finished with errors", shutdownErr)
			os.Exit(1)
		}
		logg.Info(ctx, "shutdown complete")
	}
}
