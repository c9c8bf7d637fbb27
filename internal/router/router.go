package router

import (
	"database/sql"
	"net/http"

	"pharmacy_pos_backend/internal/config"
	"pharmacy_pos_backend/internal/handlers"
	"pharmacy_pos_backend/internal/metrics"
	"pharmacy_pos_backend/internal/middleware"
	"pharmacy_pos_backend/internal/repositories"
	"pharmacy_pos_backend/internal/services"
	"pharmacy_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Services bundles everything the HTTP layer talks to.
type Services struct {
	Auth          services.AuthService
	Inventory     services.InventoryService
	Customers     services.CustomerService
	Agencies      services.AgencyService
	Billing       services.BillingService
	Plans         services.PlanService
	Subscriptions services.SubscriptionService
}

// NewServices wires repositories and services over one connection pool.
func NewServices(db *sql.DB, cfg *config.Config, jwtManager *utils.JWTManager, m *metrics.Metrics) *Services {
	// Initialize Repositories
	authRepo := repositories.NewAuthRepository(db)
	inventoryRepo := repositories.NewInventoryRepository(db)
	movementRepo := repositories.NewInventoryMovementRepository(db)
	customerRepo := repositories.NewCustomerRepository(db)
	agencyRepo := repositories.NewAgencyRepository(db)
	billRepo := repositories.NewBillRepository(db)
	subRepo := repositories.NewSubscriptionRepository(db)
	tx := repositories.NewTransactor(db)

	// Initialize Services
	planService := services.NewPlanService(subRepo, cfg.PlanCacheSize, cfg.PlanCacheTTL)
	subscriptionService := services.NewSubscriptionService(subRepo, authRepo, inventoryRepo, customerRepo, planService, m, services.LimitPolicy(cfg.LimitPolicy))

	return &Services{
		Auth:          services.NewAuthService(authRepo, db, jwtManager, subscriptionService),
		Inventory:     services.NewInventoryService(inventoryRepo, movementRepo, tx, subscriptionService),
		Customers:     services.NewCustomerService(customerRepo, db, subscriptionService),
		Agencies:      services.NewAgencyService(agencyRepo, db),
		Billing:       services.NewBillingService(billRepo, inventoryRepo, movementRepo, customerRepo, authRepo, tx, m, cfg.InvoicePrefix),
		Plans:         planService,
		Subscriptions: subscriptionService,
	}
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, svc *Services, jwtManager *utils.JWTManager, m *metrics.Metrics) {
	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(svc.Auth)
	inventoryHandler := handlers.NewInventoryHandler(svc.Inventory)
	customerHandler := handlers.NewCustomerHandler(svc.Customers)
	agencyHandler := handlers.NewAgencyHandler(svc.Agencies)
	billHandler := handlers.NewBillHandler(svc.Billing)
	planHandler := handlers.NewPlanHandler(svc.Plans)
	subscriptionHandler := handlers.NewSubscriptionHandler(svc.Subscriptions)

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if m != nil {
		engine.GET("/metrics", m.Handler())
	}

	apiV1 := engine.Group("/api/v1")

	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware(jwtManager))
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)

		SetupInventoryRoutes(authenticated, inventoryHandler)
		SetupCustomerRoutes(authenticated, customerHandler)
		SetupAgencyRoutes(authenticated, agencyHandler)
		SetupBillRoutes(authenticated, billHandler)
		SetupPlanRoutes(authenticated, planHandler)
		SetupSubscriptionRoutes(authenticated, subscriptionHandler)
		SetupStaffRoutes(authenticated, authHandler)
		SetupAdminRoutes(authenticated, authHandler, subscriptionHandler)
	}
}

// SetupPublicAuthRoutes registers the routes reachable without a token.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/register", authHandler.RegisterUser)
	group.POST("/login", authHandler.LoginUser)
}

func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/logout", authHandler.LogoutUser)
	group.GET("/me", authHandler.GetCurrentUser)
}
