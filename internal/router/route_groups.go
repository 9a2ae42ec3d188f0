package router

import (
	"github.com/gin-gonic/gin"

	"ledger_backend/internal/handlers"
	"ledger_backend/internal/middleware"
)

// SetupAuthRoutes sets up sign-in and token authentication. Both are public.
func SetupAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler, limiter *middleware.IPRateLimiter) {
	signIn := []gin.HandlerFunc{authHandler.SignIn}
	if limiter != nil {
		signIn = append([]gin.HandlerFunc{middleware.RateLimit(limiter)}, signIn...)
	}
	group.POST("/sign-in/", signIn...)
	group.GET("/token/authenticate/:token/", authHandler.Authenticate)
}

// SetupCustomerRoutes sets up the customer routes.
func SetupCustomerRoutes(group *gin.RouterGroup, customerHandler *handlers.CustomerHandler) {
	customerRoutes := group.Group("/customers")
	{
		customerRoutes.GET("/", customerHandler.ListCustomers)
		customerRoutes.POST("/", customerHandler.CreateCustomer)
		customerRoutes.GET("/:customerId/", customerHandler.GetCustomer)
	}
}

// SetupPaymentRoutes sets up the payment routes. The customer always comes from the path.
func SetupPaymentRoutes(group *gin.RouterGroup, paymentHandler *handlers.PaymentHandler) {
	paymentRoutes := group.Group("/payments")
	{
		paymentRoutes.GET("/:customerId/", paymentHandler.ListPayments)
		paymentRoutes.POST("/:customerId/", paymentHandler.RecordPayment)
	}
}

// SetupUserRoutes sets up the user routes. listGuards run before the listing only.
func SetupUserRoutes(group *gin.RouterGroup, userHandler *handlers.UserHandler, listGuards ...gin.HandlerFunc) {
	userRoutes := group.Group("/users")
	{
		userRoutes.GET("/", append(listGuards, userHandler.ListUsers)...)
		userRoutes.POST("/", userHandler.CreateUser)
	}
}
