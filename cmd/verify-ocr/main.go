// verify-ocr sends one receipt image to the OCR model without a catalog and prints the
// normalized extraction plus the raw lines it converts to.
//
// Usage: go run ./cmd/verify-ocr <image> [IMPORT|EXPORT]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"inventory-intake/internal/ai"
	"inventory-intake/internal/config"
	"inventory-intake/internal/core"
	"inventory-intake/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadEnv()
	log := logger.NewZapLogger(logger.Config{Level: "debug", Encoding: "console", DisableStacktrace: true})
	defer log.Sync()

	if len(os.Args) < 2 {
		log.Fatal("usage: verify-ocr <image> [IMPORT|EXPORT]")
	}
	if cfg.OpenAI.APIKey == "" {
		log.Fatal("OPENAI_API_KEY not set")
	}

	dir := core.DirectionInbound
	if len(os.Args) > 2 {
		d, err := core.ParseDirection(os.Args[2])
		if err != nil {
			log.Fatal("bad receipt type", zap.Error(err))
		}
		dir = d
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal("failed to read image", zap.Error(err))
	}
	img := ai.ReceiptImage{MimeType: http.DetectContentType(data), Data: data}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	extractor := ai.NewExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model, log)
	start := time.Now()
	extraction, err := extractor.Extract(ctx, img, dir, ai.CatalogHints{})
	if err != nil {
		log.Fatal("extraction failed", zap.Error(err))
	}
	log.Info("extracted", zap.Duration("took", time.Since(start)), zap.Float64("confidence", extraction.Confidence))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	fmt.Println("--- EXTRACTION ---")
	_ = enc.Encode(extraction)
	fmt.Println("--- RAW LINES ---")
	_ = enc.Encode(extraction.ToRawLines())
}
