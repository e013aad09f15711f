package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nekogravitycat/item-share-backend/internal/auth"
	"github.com/nekogravitycat/item-share-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/item-share-backend/internal/booking/http"
	"github.com/nekogravitycat/item-share-backend/internal/item"
	itemHttp "github.com/nekogravitycat/item-share-backend/internal/item/http"
	"github.com/nekogravitycat/item-share-backend/internal/user"
	userHttp "github.com/nekogravitycat/item-share-backend/internal/user/http"
)

// Config is everything the router needs.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       *zap.Logger
	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter *RateLimiter
	// DB is optional; nil makes /healthz always report ok.
	DB Pinger

	UserService    user.Service
	ItemService    item.Service
	BookingService booking.Service
	JWTManager     *auth.JWTManager
}

// NewRouter assembles middleware and registers every module's routes.
func NewRouter(cfg Config) (*gin.Engine, error) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(cfg.Logger), Metrics())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://localhost:8081"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", healthHandler(cfg.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	v1 := r.Group("/v1")
	if cfg.RateLimiter != nil {
		v1.Use(RateLimit(cfg.RateLimiter))
	}
	{
		userHttp.RegisterRoutes(v1, userHttp.NewHandler(cfg.UserService, cfg.JWTManager), authMiddleware)
		itemHttp.RegisterRoutes(v1, itemHttp.NewHandler(cfg.ItemService), authMiddleware)
		if err := bookingHttp.RegisterRoutes(v1, bookingHttp.NewHandler(cfg.BookingService), authMiddleware); err != nil {
			return nil, err
		}
	}

	return r, nil
}
