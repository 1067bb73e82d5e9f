package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/controllers"
	analyticscontrollers "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/controllers/analytics"
	inventorycontrollers "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/controllers/inventory"
	listingcontrollers "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/controllers/listings"
	purchasecontrollers "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/controllers/purchases"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/middleware"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/inventory"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/listings"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/notifications"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/purchases"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/users"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth/session"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/metrics"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/redis"
)

// NewRouter mounts every HTTP surface of the API.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	sessionManager session.AccessSessionChecker,
	gatherer prometheus.Gatherer,
	authService auth.Service,
	registerService auth.RegisterService,
	usersService users.Service,
	inventoryService inventory.Service,
	listingsService listings.Service,
	purchasesService purchases.Service,
	notificationsService notifications.Service,
	analyticsService analytics.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginPhoneLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterPhoneLimit,
	)

	var (
		idempotencyStore redis.IdempotencyStore
		limiterStore     middleware.RateLimitStore
	)
	readiness := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		idempotencyStore = redisClient
		limiterStore = redisClient
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	}

	staff := []enums.UserRole{enums.RoleAdmin, enums.RoleMinagriOfficer}
	farmerOrStaff := []enums.UserRole{enums.RoleFarmer, enums.RoleAdmin, enums.RoleMinagriOfficer}
	buyerOrStaff := []enums.UserRole{enums.RoleBuyer, enums.RoleAdmin, enums.RoleMinagriOfficer}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(
				middleware.AuthRateLimit(registerPolicy, limiterStore, logg),
				middleware.Idempotency(idempotencyStore, logg),
			).Post("/register", controllers.AuthRegister(registerService, authService, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, limiterStore, logg)).Post("/login", controllers.AuthLogin(authService, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
			r.Post("/refresh", controllers.AuthRefresh(authService, logg))
			r.With(middleware.Auth(cfg.JWT, sessionManager, logg)).Get("/me", controllers.AuthMe(usersService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Route("/users", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, staff...))
					r.Get("/", controllers.UsersList(usersService, logg))
					r.Get("/lookup", controllers.UsersLookup(usersService, logg))
					r.Get("/{id}", controllers.UsersGet(usersService, logg))
				})
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
					r.Post("/", controllers.UsersCreate(registerService, logg))
					r.Post("/{id}/activate", controllers.UsersActivate(usersService, logg))
					r.Post("/{id}/deactivate", controllers.UsersDeactivate(usersService, logg))
					r.Delete("/{id}", controllers.UsersDelete(usersService, logg))
				})
			})

			r.Route("/harvests", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, farmerOrStaff...))
				r.Post("/", inventorycontrollers.CreateHarvest(inventoryService, logg))
				r.Get("/", inventorycontrollers.ListHarvests(inventoryService, logg))
				r.Get("/{id}", inventorycontrollers.GetHarvest(inventoryService, logg))
				r.Delete("/{id}", inventorycontrollers.DeleteHarvest(inventoryService, logg))
			})

			r.Route("/stocks", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, farmerOrStaff...))
				r.Get("/", inventorycontrollers.ListStocks(inventoryService, logg))
				r.Get("/{id}", inventorycontrollers.GetStock(inventoryService, logg))
				r.Post("/{id}/movements", inventorycontrollers.RecordMovement(inventoryService, logg))
				r.Get("/{id}/movements", inventorycontrollers.ListMovements(inventoryService, logg))
			})

			r.Route("/warehouses", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, staff...))
				r.Post("/", inventorycontrollers.CreateWarehouse(inventoryService, logg))
				r.Get("/", inventorycontrollers.ListWarehouses(inventoryService, logg))
				r.Get("/reports/capacity", inventorycontrollers.CapacityReport(inventoryService, logg))
				r.Post("/commodities/{id}/inventory", inventorycontrollers.ChangeInventory(inventoryService, logg))
				r.Get("/commodities/{id}/movements", inventorycontrollers.ListCommodityMovements(inventoryService, logg))
				r.Post("/{id}/commodities", inventorycontrollers.AddCommodity(inventoryService, logg))
				r.Get("/{id}/commodities", inventorycontrollers.ListCommodities(inventoryService, logg))
			})

			r.Route("/storage-orders", func(r chi.Router) {
				r.Post("/", inventorycontrollers.CreateStorageOrder(inventoryService, logg))
				r.Get("/", inventorycontrollers.ListStorageOrders(inventoryService, logg))
				r.Get("/{id}", inventorycontrollers.GetStorageOrder(inventoryService, logg))
				r.Delete("/{id}", inventorycontrollers.DeleteStorageOrder(inventoryService, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, staff...))
					r.Post("/{id}/confirm", inventorycontrollers.ConfirmStorageOrder(inventoryService, logg))
					r.Post("/{id}/reject", inventorycontrollers.RejectStorageOrder(inventoryService, logg))
					r.Post("/{id}/export", inventorycontrollers.ExportStorageOrder(inventoryService, logg))
				})
			})

			r.Route("/sells", func(r chi.Router) {
				r.Get("/available", listingcontrollers.Available(listingsService, logg))
				r.Get("/delivery-schedule", listingcontrollers.DeliverySchedule(listingsService, logg))
				r.Get("/overdue", listingcontrollers.Overdue(listingsService, logg))
				r.With(middleware.RequireRole(logg, enums.RoleFarmer)).Post("/", listingcontrollers.Create(listingsService, logg))
				r.With(middleware.RequireRole(logg, enums.RoleFarmer)).Get("/mine", listingcontrollers.Mine(listingsService, logg))
				r.With(middleware.RequireRole(logg, enums.RoleBuyer)).Get("/claimed", listingcontrollers.Claimed(listingsService, logg))

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", listingcontrollers.Detail(listingsService, logg))
					r.Patch("/", listingcontrollers.Update(listingsService, logg))
					r.Delete("/", listingcontrollers.Delete(listingsService, logg))
					r.With(middleware.RequireRole(logg, enums.RoleBuyer)).Post("/claim", listingcontrollers.Claim(listingsService, logg))
					r.With(middleware.RequireRole(logg, farmerOrStaff...)).Post("/complete", listingcontrollers.Complete(listingsService, logg))
					r.With(middleware.RequireRole(logg, farmerOrStaff...)).Post("/cancel", listingcontrollers.Cancel(listingsService, logg))
					r.Post("/payments", listingcontrollers.RecordPayment(listingsService, logg))
					r.Get("/payments", listingcontrollers.Payments(listingsService, logg))
					r.Post("/payment-status", listingcontrollers.PaymentStatus(listingsService, logg))
					r.Patch("/delivery", listingcontrollers.UpdateDelivery(listingsService, logg))
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, staff...))
				r.Get("/sells", listingcontrollers.ListAll(listingsService, logg))
				r.Get("/farmers/{id}/sells", listingcontrollers.ListByFarmer(listingsService, logg))
				r.Get("/buyers/{id}/sells", listingcontrollers.ListByBuyer(listingsService, logg))
			})

			r.Route("/purchases", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.RoleBuyer)).Post("/", purchasecontrollers.Create(purchasesService, logg))
				r.With(middleware.RequireRole(logg, enums.RoleBuyer)).Get("/mine", purchasecontrollers.Mine(purchasesService, logg))
				r.With(middleware.RequireRole(logg, enums.RoleFarmer)).Get("/farmer", purchasecontrollers.ForFarmer(purchasesService, logg))
				r.With(middleware.RequireRole(logg, staff...)).Get("/", purchasecontrollers.ListAll(purchasesService, logg))

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", purchasecontrollers.Detail(purchasesService, logg))
					r.Patch("/status", purchasecontrollers.UpdateStatus(purchasesService, logg))
					r.Delete("/", purchasecontrollers.Delete(purchasesService, logg))
					r.With(middleware.RequireRole(logg, buyerOrStaff...)).Post("/payments", purchasecontrollers.MakePayment(purchasesService, logg))
					r.Get("/payments", purchasecontrollers.Payments(purchasesService, logg))
				})
			})

			r.With(middleware.RequireRole(logg, buyerOrStaff...)).
				Post("/payments/{id}/confirm", purchasecontrollers.ConfirmPayment(purchasesService, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(notificationsService, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
				r.Post("/{id}/read", controllers.MarkNotificationRead(notificationsService, logg))
			})

			if analyticsService != nil {
				r.With(middleware.RequireRole(logg, farmerOrStaff...)).
					Get("/analytics/marketplace", analyticscontrollers.MarketplaceAnalytics(analyticsService, logg))
			}
		})
	})

	return r
}
