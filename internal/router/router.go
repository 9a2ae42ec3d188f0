package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger_backend/internal/handlers"
	"ledger_backend/internal/middleware"
	"ledger_backend/internal/services"
	"ledger_backend/pkg/utils"
)

// Deps are the services and switches the routes are built from.
type Deps struct {
	Auth   services.AuthService
	Tokens services.TokenService
	Ledger services.LedgerService

	// RequireAuth puts the ledger and user routes behind bearer authentication.
	RequireAuth bool
	// SignInLimiter throttles /sign-in/ per client IP. Nil disables it.
	SignInLimiter *middleware.IPRateLimiter
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, deps Deps) {
	utils.RegisterJSONTagNames()

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Tokens)
	customerHandler := handlers.NewCustomerHandler(deps.Ledger)
	paymentHandler := handlers.NewPaymentHandler(deps.Ledger)
	userHandler := handlers.NewUserHandler(deps.Auth)

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	SetupAuthRoutes(engine.Group(""), authHandler, deps.SignInLimiter)

	protected := engine.Group("")
	var staffOnly []gin.HandlerFunc
	if deps.RequireAuth {
		protected.Use(middleware.AuthMiddleware(deps.Tokens))
		staffOnly = append(staffOnly, middleware.StaffOnly(deps.Auth))
	}
	{
		SetupCustomerRoutes(protected, customerHandler)
		SetupPaymentRoutes(protected, paymentHandler)
		SetupUserRoutes(protected, userHandler, staffOnly...)
	}
}
