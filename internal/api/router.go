package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nekogravitycat/shop-scheduler/internal/auth"
	bookingHttp "github.com/nekogravitycat/shop-scheduler/internal/booking/http"
	"github.com/nekogravitycat/shop-scheduler/internal/logging"
)

// Config holds everything the router needs to assemble middleware and routes.
type Config struct {
	IsProduction   bool
	ProdOrigins    string
	Logger         *zap.Logger
	JWTManager     *auth.JWTManager
	BookingHandler *bookingHttp.Handler
	Health         Pinger
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (request id, access log, recovery, CORS, auth) and registering routes.
func NewRouter(cfg Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()

	// Global Middleware:
	// - RequestID: propagates or assigns X-Request-Id.
	// - AccessLog: one structured line per request.
	// - Recovery: captures panics and returns a 500 error.
	r.Use(logging.RequestID(), logging.AccessLog(logger), Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins(cfg.IsProduction, cfg.ProdOrigins)
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", bookingHttp.ClientIDHeader, logging.RequestIDHeader}
	config.ExposeHeaders = []string{logging.RequestIDHeader}
	r.Use(cors.New(config))

	r.GET("/healthz", Healthz(cfg.Health))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		bookingHttp.RegisterRoutes(v1, cfg.BookingHandler, authMiddleware)
	}

	return r
}

func allowedOrigins(isProduction bool, prodOrigins string) []string {
	if !isProduction {
		return []string{
			"http://localhost:8081", // Swagger
			"http://localhost:5173", // Frontend dev server
		}
	}

	var origins []string
	for _, o := range strings.Split(prodOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
