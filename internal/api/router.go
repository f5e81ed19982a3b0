package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/order-platform/internal/api/handler"
	"github.com/99minutos/order-platform/internal/api/middleware"
	"github.com/99minutos/order-platform/internal/core/domain"
	"github.com/99minutos/order-platform/internal/core/ports"
)

// RegisterUserRoutes mounts the users service API. Register and login are
// public; everything else requires a valid token, and the listing is admin only.
func RegisterUserRoutes(e *echo.Echo, users ports.UserService, tokens ports.TokenValidator, tokenTTL time.Duration, log zerolog.Logger) {
	h := handler.NewUserHandler(users, tokenTTL)

	// --- Public routes ---
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)

	// --- Guarded routes ---
	guarded := e.Group("/v1/users", middleware.Authenticate(tokens, log))
	guarded.GET("/me", h.Me)
	guarded.PUT("/me", h.UpdateMe)
	guarded.GET("", h.List, middleware.RequireRole(domain.RoleAdmin))
	guarded.GET("/", h.List, middleware.RequireRole(domain.RoleAdmin))
}

// RegisterOrderRoutes mounts the orders service API. Every route requires a
// valid token; ownership is enforced by the order service.
func RegisterOrderRoutes(e *echo.Echo, orders ports.OrderService, tokens ports.TokenValidator, log zerolog.Logger) {
	h := handler.NewOrderHandler(orders)

	guarded := e.Group("/v1/orders", middleware.Authenticate(tokens, log), middleware.RequireRole(domain.RoleClient))
	guarded.POST("", h.Create)
	guarded.GET("", h.ListMine)
	guarded.GET("/:id", h.Get)
	guarded.DELETE("/:id", h.Cancel)
	guarded.PUT("/:id/status", h.UpdateStatus)
	guarded.PUT("/:id/items", h.ReplaceItems)
}
