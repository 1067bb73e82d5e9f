package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/routes"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics"
	analyticstypes "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/types"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/inventory"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/listings"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/notifications"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/payments"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/purchases"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/users"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth/session"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bigquery"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bootstrap"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/metrics"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/paypack"
)

const shutdownTimeout = 15 * time.Second

func main() {
	proc := bootstrap.Start("api")
	defer proc.Close()
	cfg, logg := proc.Config, proc.Logger

	startCtx := context.Background()
	dbClient := proc.Database(startCtx)
	redisClient := proc.Redis(startCtx)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	proc.Must("session manager", err)

	userRepo := users.NewRepository(dbClient.DB())
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	proc.Must("auth service", err)
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		Users:          userRepo,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	proc.Must("register service", err)
	usersService, err := users.NewService(userRepo, logg)
	proc.Must("users service", err)

	var charger payments.Charger
	if cfg.PayPack.Enabled() {
		gatewayMetrics := metrics.NewGatewayMetrics(prometheus.DefaultRegisterer)
		paypackClient, err := paypack.NewClient(cfg.PayPack, paypack.WithMetrics(gatewayMetrics))
		proc.Must("paypack client", err)
		charger, err = payments.NewPayPackCharger(paypackClient)
		proc.Must("payment charger", err)
	} else {
		logg.Warn(startCtx, "paypack credentials missing, mobile money payments disabled")
	}

	inventoryRepo := inventory.NewRepository(dbClient.DB())
	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repo:    inventoryRepo,
		TX:      dbClient,
		Charger: charger,
		Logger:  logg,
	})
	proc.Must("inventory service", err)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	purchaseRepo := purchases.NewRepository(dbClient.DB())

	listingsService, err := listings.NewService(listings.ServiceParams{
		Repo:        listings.NewRepository(dbClient.DB()),
		Purchases:   purchaseRepo,
		Inventory:   inventoryRepo,
		TX:          dbClient,
		Outbox:      outboxService,
		Marketplace: cfg.Marketplace,
		Logger:      logg,
	})
	proc.Must("listings service", err)

	purchasesService, err := purchases.NewService(purchases.ServiceParams{
		Repo:      purchaseRepo,
		Inventory: inventoryRepo,
		TX:        dbClient,
		Outbox:    outboxService,
		Charger:   charger,
		Logger:    logg,
	})
	proc.Must("purchases service", err)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	proc.Must("notifications service", err)

	var analyticsService analytics.Service
	tables := []bigquery.TableSpec{analyticstypes.MarketplaceEventsTable(cfg.BigQuery.MarketplaceEventsTable)}
	bqClient, err := bigquery.NewClient(startCtx, cfg.GCP, cfg.BigQuery, tables, logg)
	if err != nil {
		logg.Warn(startCtx, "bigquery unavailable, marketplace analytics disabled")
	} else {
		proc.Track("bigquery", bqClient)
		analyticsService, err = analytics.NewService(bqClient, cfg.BigQuery.MarketplaceEventsTable)
		proc.Must("analytics service", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := proc.SignalContext()
	defer stop()
	ctx = logg.WithField(ctx, "addr", addr)
	logg.Info(ctx, "api server listening")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			prometheus.DefaultGatherer,
			authService,
			registerService,
			usersService,
			inventoryService,
			listingsService,
			purchasesService,
			notificationsService,
			analyticsService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			proc.Must("api server", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server stopped")
	}
}
