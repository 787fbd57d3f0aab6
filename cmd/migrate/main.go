// migrate applies migrations/NNN_*.sql in order, once each, recording a checksum per version.
// A file that changed after it was applied stops the run.
//
// Usage: go run ./cmd/migrate [-dir migrations]
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"inventory-intake/internal/config"
	"inventory-intake/internal/db"
	"inventory-intake/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const migrationLockKey = 7462840

func main() {
	dir := flag.String("dir", "migrations", "directory holding NNN_description.sql files")
	flag.Parse()

	cfg := config.LoadEnv()
	log := logger.NewZapLogger(logger.Config{Level: "info", Encoding: "console", DisableStacktrace: true})
	defer log.Sync()

	ctx := context.Background()
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := db.NewPool(connCtx, cfg.Postgres.URL)
	cancel()
	if err != nil {
		log.Fatal("connect failed", zap.Error(err))
	}
	defer pool.Close()

	conn := acquireLock(ctx, pool, log)
	defer conn.Release()

	setupSchemaMigrations(ctx, pool, log)

	for _, filename := range discoverMigrations(*dir, log) {
		applyMigration(ctx, pool, *dir, filename, log)
	}

	log.Info("all migrations processed")
}

func acquireLock(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) *pgxpool.Conn {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		log.Fatal("failed to acquire connection for lock", zap.Error(err))
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockKey).Scan(&locked); err != nil {
		log.Fatal("failed to query advisory lock", zap.Error(err))
	}
	if !locked {
		log.Fatal("another migrator is currently running")
	}
	return conn
}

func setupSchemaMigrations(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) {
	query := `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	if _, err := pool.Exec(ctx, query); err != nil {
		log.Fatal("failed to create schema_migrations table", zap.Error(err))
	}
}

func discoverMigrations(dir string, log *zap.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatal("failed to read migrations directory", zap.String("dir", dir), zap.Error(err))
	}

	var filenames []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, ok := extractVersion(entry.Name())
		if !ok {
			log.Fatal("invalid migration filename, expected NNN_description.sql", zap.String("file", entry.Name()))
		}
		if seen[version] {
			log.Fatal("duplicate migration version", zap.String("version", version))
		}
		seen[version] = true
		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)
	return filenames
}

func extractVersion(filename string) (string, bool) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, dir, filename string, log *zap.Logger) {
	version, _ := extractVersion(filename)
	sqlBytes, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		log.Fatal("failed to read migration file", zap.String("file", filename), zap.Error(err))
	}
	sum := sha256.Sum256(sqlBytes)
	checksum := hex.EncodeToString(sum[:])

	var existing string
	err = pool.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", version).Scan(&existing)
	switch {
	case err == nil && existing == checksum:
		log.Info("skip", zap.String("file", filename))
		return
	case err == nil:
		log.Fatal("checksum mismatch", zap.String("file", filename), zap.String("recorded", existing), zap.String("current", checksum))
	case !errors.Is(err, pgx.ErrNoRows):
		log.Fatal("failed to query schema_migrations", zap.String("file", filename), zap.Error(err))
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal("failed to begin transaction", zap.String("file", filename), zap.Error(err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
		log.Fatal("failed to execute migration", zap.String("file", filename), zap.Error(err))
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		version, filename, checksum,
	); err != nil {
		log.Fatal("failed to record migration", zap.String("file", filename), zap.Error(err))
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatal("failed to commit migration", zap.String("file", filename), zap.Error(err))
	}

	log.Info("applied", zap.String("file", filename))
}
