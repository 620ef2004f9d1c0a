package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emirates-backoffice/internal/database/models"
	"emirates-backoffice/internal/gateway/handlers"
	"emirates-backoffice/internal/gateway/health"
	"emirates-backoffice/internal/gateway/middleware"
)

type Deps struct {
	Settlement  handlers.SettlementService
	Inventory   handlers.InventoryService
	Users       handlers.UserService
	Customers   handlers.CustomerService
	Authorizer  middleware.Authorizer
	Health      *health.Checker
	CORSOrigins []string
	// RateLimit is in limiter notation; empty disables limiting.
	RateLimit string
}

var (
	adminRoles     = []string{models.RoleAdmin, models.RoleCEO}
	stockRoles     = []string{models.RoleAdmin, models.RoleCEO, models.RoleStockManager}
	stockReadRoles = []string{models.RoleAdmin, models.RoleCEO, models.RoleStockManager, models.RoleSeniorCashier, models.RoleJuniorCashier}
)

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.CORS(deps.CORSOrigins))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	if deps.RateLimit != "" {
		r.Use(middleware.RateLimit(deps.RateLimit))
	}

	userHandler := handlers.NewUserHTTPHandler(deps.Users, deps.Customers)
	inventoryHandler := handlers.NewInventoryHTTPHandler(deps.Inventory)
	settlementHandler := handlers.NewSettlementHTTPHandler(deps.Settlement)

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", userHandler.Login)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		users := protected.Group("/users")
		users.Use(middleware.RequireRoles(deps.Authorizer, adminRoles...))
		{
			users.POST("", userHandler.Register)
			users.PATCH("/:id/active", userHandler.SetActive)
		}

		customers := protected.Group("/customers")
		{
			customers.POST("", userHandler.CreateCustomer)
			customers.GET("/:id", userHandler.GetCustomer)
		}

		// role checks for settlement happen in the service
		orders := protected.Group("/orders")
		{
			orders.POST("", settlementHandler.CreateOrder)
			orders.GET("", settlementHandler.ListOrders)
			orders.GET("/range", settlementHandler.ListOrdersByDateRange)
			orders.GET("/day/:date", settlementHandler.ListOrdersByDay)
			orders.GET("/customer/:id", settlementHandler.ListOrdersByCustomer)
			orders.GET("/served-by/:id", settlementHandler.ListOrdersByServedBy)
			orders.POST("/items/:itemId/return", settlementHandler.ReturnOrderItem)
			orders.GET("/:id", settlementHandler.GetOrder)
			orders.GET("/:id/children", settlementHandler.ListChildOrders)
			orders.GET("/:id/payments", settlementHandler.ListPayments)
			orders.PATCH("/:id/status", settlementHandler.UpdatePaymentStatus)
		}

		payments := protected.Group("/payments")
		{
			payments.POST("", settlementHandler.RecordPayment)
			payments.GET("/cash/today", settlementHandler.TotalCashToday)
			payments.GET("/cash/:date", settlementHandler.TotalCashOn)
		}

		credits := protected.Group("/credits")
		{
			credits.POST("", settlementHandler.OpenOrUpdateCredit)
			credits.GET("/customer/:id", settlementHandler.ListOutstandingCredits)
		}

		inventory := protected.Group("/inventory")
		{
			read := middleware.RequireRoles(deps.Authorizer, stockReadRoles...)
			write := middleware.RequireRoles(deps.Authorizer, stockRoles...)

			inventory.POST("/products", write, inventoryHandler.CreateProduct)
			inventory.GET("/products/:id", read, inventoryHandler.GetProduct)
			inventory.GET("/products/:id/availability", read, settlementHandler.CheckAvailability)
			inventory.POST("/products/:id/decrement", write, inventoryHandler.DecrementStock)
			inventory.GET("/low-stock", read, inventoryHandler.ListLowStock)
		}
	}

	if deps.Health != nil {
		r.GET("/health", deps.Health.Handler())
		r.GET("/health/detailed", deps.Health.DetailedHandler())
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "route not found",
			"error":   "NOT_FOUND",
		})
	})

	return r
}
