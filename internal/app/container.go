package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/item-share-backend/internal/api"
	"github.com/nekogravitycat/item-share-backend/internal/auth"
	"github.com/nekogravitycat/item-share-backend/internal/booking"
	"github.com/nekogravitycat/item-share-backend/internal/events"
	"github.com/nekogravitycat/item-share-backend/internal/item"
	"github.com/nekogravitycat/item-share-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       *zap.Logger
	// DBPool nil selects the in-memory stores.
	DBPool     *pgxpool.Pool
	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	KafkaBrokers []string
	KafkaTopic   string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	BookingService booking.Service

	closers []func() error
}

// NewContainer initializes all modules and returns the container.
// ctx bounds background work such as rate limiter cleanup.
func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	var (
		userRepo user.Repository
		itemRepo item.Repository
	)
	if cfg.DBPool != nil {
		userRepo = user.NewPgxRepository(cfg.DBPool)
		itemRepo = item.NewPgxRepository(cfg.DBPool)
	} else {
		userRepo = user.NewMemoryRepository()
		itemRepo = item.NewMemoryRepository()
	}

	var bookingRepo booking.Repository
	if cfg.DBPool != nil {
		bookingRepo = booking.NewPgxRepository(cfg.DBPool)
	} else {
		bookingRepo = booking.NewMemoryRepository(userRepo, itemRepo)
	}

	c := &Container{JWTManager: jwtManager}

	// User Module
	userService := user.NewService(userRepo, passwordHasher, logger.Named("user"))

	// Booking Module. Items are resolved through the repository so the item
	// service can depend on bookings for its delete cascade.
	bookingOpts := []booking.Option{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger.Named("events"))
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		c.closers = append(c.closers, publisher.Close)
		bookingOpts = append(bookingOpts, booking.WithPublisher(publisher))
	} else {
		logger.Info("no kafka brokers configured, booking events are not published")
	}
	bookingService := booking.NewService(bookingRepo, userService, itemRepo, logger.Named("booking"), bookingOpts...)

	// Item Module
	itemService := item.NewService(itemRepo, userService, bookingService, logger.Named("item"))

	routerParams := api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		Logger:         logger.Named("http"),
		UserService:    userService,
		ItemService:    itemService,
		BookingService: bookingService,
		JWTManager:     jwtManager,
	}
	if cfg.DBPool != nil {
		routerParams.DB = cfg.DBPool
	}
	if cfg.RateLimitRPS > 0 {
		routerParams.RateLimiter = api.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	}

	router, err := api.NewRouter(routerParams)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	c.Router = router
	c.BookingService = bookingService
	return c, nil
}

// Close releases resources owned by the container.
func (c *Container) Close() error {
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
