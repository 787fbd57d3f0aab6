package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"inventory-intake/internal/adapters/cli"
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
	// CLI output goes to stdout; keep the log quiet unless asked.
	level := cfg.Logger.Level
	if _, ok := os.LookupEnv("LOGGER_LEVEL"); !ok {
		level = "warn"
	}
	log := logger.NewZapLogger(logger.Config{Level: level, Encoding: "console", DisableStacktrace: true})
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatal("unable to connect to database", zap.Error(err))
	}
	defer pool.Close()

	catalogService := core.NewCatalogService(pool)

	var extractor ai.ReceiptExtractor
	if cfg.OpenAI.APIKey != "" {
		var rdb redis.Cmdable
		if cfg.Redis.Addr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			defer client.Close()
			rdb = client
		}
		extractor = ai.NewCachedExtractor(ai.NewExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model, log), rdb, cfg.Redis.CacheTTL, log)
	}

	svc := app.NewAppService(catalogService, catalogService, core.NewTransactionService(pool), extractor, cfg.Engine, log)
	if _, err := svc.Refresh(ctx); err != nil {
		log.Fatal("failed to load catalog", zap.Error(err))
	}

	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
