// Package router assembles the gin engine: middleware chain, public and
// protected API groups, admin routes, docs and operational endpoints.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"walletwise/internal/handlers"
	"walletwise/internal/idempotency"
	"walletwise/internal/metrics"
	"walletwise/internal/middleware"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Transaction  *handlers.TransactionHandler
	Budget       *handlers.BudgetHandler
	Goal         *handlers.GoalHandler
	Report       *handlers.ReportHandler
	Gamification *handlers.GamificationHandler
	Admin        *handlers.AdminHandler
	Health       *handlers.HealthHandler
}

// Deps are the router's collaborators. Metrics and Redis are optional:
// without Redis, Idempotency-Key headers are ignored.
type Deps struct {
	Handlers    Handlers
	Metrics     *metrics.Metrics
	Redis       redis.Cmdable
	Idempotency idempotency.Config
	AdminAPIKey string
	// Swagger mounts /swagger/*any when set.
	Swagger bool
}

// New builds the engine.
func New(deps Deps) *gin.Engine {
	h := deps.Handlers

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(deps.Metrics.Middleware())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	if deps.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	router.GET("/api/health", h.Health.Health)

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	idem := idempotency.Middleware(deps.Redis, deps.Idempotency)

	protected.GET("/profile", h.Auth.GetProfile)

	transactions := protected.Group("/transactions")
	transactions.POST("", idem, h.Transaction.CreateTransaction)
	transactions.GET("", h.Transaction.GetTransactions)
	transactions.GET("/:id", h.Transaction.GetTransaction)
	transactions.DELETE("/:id", h.Transaction.DeleteTransaction)
	transactions.POST("/:id/undo", idem, h.Transaction.UndoTransaction)

	protected.GET("/reports/summary", h.Report.GetSummary)
	protected.GET("/gamification/stats", h.Gamification.GetStats)

	budgets := protected.Group("/budgets")
	budgets.POST("", h.Budget.CreateBudget)
	budgets.GET("", h.Budget.GetBudgets)
	budgets.GET("/:id", h.Budget.GetBudget)
	budgets.PUT("/:id", h.Budget.UpdateBudget)
	budgets.DELETE("/:id", h.Budget.DeleteBudget)
	budgets.GET("/:id/progress", h.Budget.GetBudgetProgress)

	goals := protected.Group("/goals")
	goals.POST("", h.Goal.CreateGoal)
	goals.GET("", h.Goal.GetGoals)
	goals.GET("/:id", h.Goal.GetGoal)
	goals.PUT("/:id", h.Goal.UpdateGoal)
	goals.DELETE("/:id", h.Goal.DeleteGoal)
	goals.POST("/:id/contribute", idem, h.Goal.Contribute)

	admin := v1.Group("/admin")
	admin.Use(middleware.AdminAuthMiddleware(deps.AdminAPIKey))
	admin.GET("/users/:id/transactions/deleted", h.Admin.GetDeletedTransactions)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, X-API-Key, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
