package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/item-share-backend/internal/app"
	"github.com/nekogravitycat/item-share-backend/internal/config"
	"github.com/nekogravitycat/item-share-backend/internal/db"
	"github.com/nekogravitycat/item-share-backend/internal/logger"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.IsProduction, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	var pool *pgxpool.Pool
	if cfg.Store == config.StorePostgres {
		pool, err = db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			logr.Fatal("failed to connect to db", zap.Error(err))
		}
		defer pool.Close()

		if cfg.RunMigrations {
			if err := db.RunMigrations(pool); err != nil {
				logr.Fatal("failed to run migrations", zap.Error(err))
			}
			logr.Info("migrations applied")
		}
	} else {
		logr.Warn("using in-memory stores, data is lost on restart")
	}

	container, err := app.NewContainer(ctx, app.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		Logger:         logr,
		DBPool:         pool,
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTAccessTokenTTL,
		BcryptCost:     cfg.BcryptCost,
		KafkaBrokers:   cfg.KafkaBrokers,
		KafkaTopic:     cfg.KafkaBookingTopic,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	defer func() {
		if err := container.Close(); err != nil {
			logr.Warn("failed to close container", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server running", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}

	logr.Info("server exited gracefully")
}
