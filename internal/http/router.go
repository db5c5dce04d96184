package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billing-api/internal/metrics"
	"billing-api/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	m *metrics.Metrics,
	jwtSvc *service.JWTService,
	userH *UserHandler,
	subH *SubscriptionHandler,
	webhookH *WebhookHandler,
	healthH *HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery, metricas y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), metricsMiddleware(m), jsonContentTypeMiddleware())

	r.POST("/register", userH.Register)
	r.POST("/login", userH.Login)
	r.POST("/logout", userH.Logout)
	r.POST("/register-and-subscribe", subH.RegisterAndSubscribe)
	r.POST("/webhook", webhookH.Handle)
	r.GET("/health", healthH.Health)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	auth := r.Group("/", JWTAuthMiddleware(jwtSvc))
	auth.GET("/me", userH.Me)
	auth.POST("/subscribe", subH.Subscribe)
	auth.GET("/check-subscription", subH.CheckSubscription)
	auth.POST("/cancel-subscription", subH.CancelSubscription)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// metricsMiddleware etiqueta por ruta registrada, no por path crudo.
func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
