package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/courierchat/courier-server/internal/auth"
	"github.com/courierchat/courier-server/internal/config"
	"github.com/courierchat/courier-server/internal/core"
	"github.com/courierchat/courier-server/internal/store"
)

// HealthResponse reports service and database liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	DBStatus  string    `json:"dbStatus"`
	Timestamp time.Time `json:"timestamp"`
}

// NewServer builds the HTTP server: REST API, health check, and the
// realtime WebSocket endpoint.
func NewServer(authService *auth.Service, registry *core.Registry, router *core.Router,
	st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(authService, logger)
	userHandlers := NewUserHandlers(st, registry, authService, logger)

	engine.GET("/health", func(c *gin.Context) {
		dbStatus := "Connected"
		if err := st.Ping(c.Request.Context()); err != nil {
			dbStatus = "Disconnected"
		}
		c.JSON(stdhttp.StatusOK, HealthResponse{
			Status:    "Active",
			DBStatus:  dbStatus,
			Timestamp: time.Now(),
		})
	})

	api := engine.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)
	api.POST("/forgot-password", apiHandlers.ForgotPassword)
	api.POST("/reset-password", apiHandlers.ResetPassword)

	protected := api.Group("", AuthMiddleware(authService, logger))
	protected.GET("/profile", userHandlers.GetProfile)
	protected.PUT("/profile", userHandlers.UpdatePassword)
	protected.GET("/users", userHandlers.ListUsers)
	protected.GET("/messages/:peer", userHandlers.Conversation)

	engine.GET("/ws", gin.WrapH(NewWSHandler(authService, registry, router, st, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
