package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "inventory-intake/internal/adapters/web"
	"inventory-intake/internal/ai"
	"inventory-intake/internal/app"
	"inventory-intake/internal/config"
	"inventory-intake/internal/core"
	"inventory-intake/internal/db"
	"inventory-intake/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadEnv()
	log := logger.NewZapLogger(logger.Config{
		IsDevelopment:     cfg.IsDevelopment(),
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	catalogService := core.NewCatalogService(pool)
	transactionService := core.NewTransactionService(pool)

	var extractor ai.ReceiptExtractor
	if cfg.OpenAI.APIKey == "" {
		log.Warn("OPENAI_API_KEY is not set, receipt scanning disabled")
	} else {
		var rdb redis.Cmdable
		if cfg.Redis.Addr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unavailable, OCR cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
				_ = client.Close()
			} else {
				defer client.Close()
				rdb = client
				log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
			}
		}
		extractor = ai.NewCachedExtractor(ai.NewExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model, log), rdb, cfg.Redis.CacheTTL, log)
	}

	svc := app.NewAppService(catalogService, catalogService, transactionService, extractor, cfg.Engine, log)
	if _, err := svc.Refresh(ctx); err != nil {
		log.Fatal("initial catalog load", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           webAdapter.NewHandler(svc, cfg.AllowedOriginsString(), log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}
