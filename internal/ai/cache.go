package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inventory-intake/internal/core"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "intake:ocr:"

// CachedExtractor memoizes successful extractions in redis, keyed by image content, direction
// and catalog fingerprint. Redis failures are logged and fall through to the wrapped extractor.
type CachedExtractor struct {
	next ReceiptExtractor
	rdb  redis.Cmdable
	ttl  time.Duration
	log  *zap.Logger
}

// NewCachedExtractor wraps next. A nil rdb disables caching.
func NewCachedExtractor(next ReceiptExtractor, rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) *CachedExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedExtractor{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedExtractor) Extract(ctx context.Context, img ReceiptImage, dir core.Direction, hints CatalogHints) (*ReceiptExtraction, error) {
	if c.rdb == nil {
		return c.next.Extract(ctx, img, dir, hints)
	}

	key := extractionCacheKey(img, dir, hints)
	if cached, ok := c.get(ctx, key); ok {
		c.log.Debug("ocr cache hit", zap.String("key", key))
		return cached, nil
	}

	out, err := c.next.Extract(ctx, img, dir, hints)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction for cache: %w", err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("ocr cache write failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}

func (c *CachedExtractor) get(ctx context.Context, key string) (*ReceiptExtraction, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("ocr cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var out ReceiptExtraction
	if err := json.Unmarshal(val, &out); err != nil {
		c.log.Warn("ocr cache entry unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &out, true
}

// extractionCacheKey changes whenever the image bytes, the direction or the catalog shown to
// the model change, since suggested product ids depend on all three.
func extractionCacheKey(img ReceiptImage, dir core.Direction, hints CatalogHints) string {
	imgSum := sha256.Sum256(img.Data)

	h := sha256.New()
	for _, p := range hints.Products {
		fmt.Fprintf(h, "p%d|%s|%s\n", p.ID, p.Code, p.Name)
	}
	for _, s := range hints.Stores {
		fmt.Fprintf(h, "s%d|%s|%s\n", s.ID, s.Code, s.Name)
	}
	catalogSum := h.Sum(nil)

	return cacheKeyPrefix + string(dir) + ":" + hex.EncodeToString(imgSum[:]) + ":" + hex.EncodeToString(catalogSum[:8])
}
