package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nekogravitycat/shop-scheduler/internal/api"
	"github.com/nekogravitycat/shop-scheduler/internal/auth"
	"github.com/nekogravitycat/shop-scheduler/internal/booking"
	bookingHttp "github.com/nekogravitycat/shop-scheduler/internal/booking/http"
	"github.com/nekogravitycat/shop-scheduler/internal/pkg/validation"
	"github.com/nekogravitycat/shop-scheduler/internal/precheck"
	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	// Redis is optional; without it availability reads go straight to the database.
	Redis            *redis.Client
	CacheTTL         time.Duration
	JWTSecret        string
	JWTTTL           time.Duration
	Zone             wallclock.Zone
	PrecheckDebounce time.Duration
	Logger           *zap.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	if err := validation.Register(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	var dayCache booking.DayCache = booking.NopCache{}
	if cfg.Redis != nil {
		dayCache = booking.NewRedisDayCache(cfg.Redis, cfg.CacheTTL)
	}

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo, dayCache, cfg.Zone, cfg.Logger)
	checker := precheck.New(bookingService, cfg.PrecheckDebounce)
	bookingHandler := bookingHttp.NewHandler(bookingService, checker, cfg.Zone)

	var health api.Pinger
	if cfg.DBPool != nil {
		health = cfg.DBPool
	}

	// API Router Config
	routerParams := api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		Logger:         cfg.Logger,
		JWTManager:     jwtManager,
		BookingHandler: bookingHandler,
		Health:         health,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
	}, nil
}
