package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"inventory-intake/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
	"go.uber.org/zap"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// maxHintProducts bounds the catalog listing sent with each image.
const maxHintProducts = 400

// ErrUnsupportedImage is returned for uploads that are not a supported image type.
var ErrUnsupportedImage = errors.New("unsupported image type")

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// SupportedImageType reports whether the OCR model accepts the MIME type.
func SupportedImageType(mimeType string) bool {
	return supportedImageTypes[strings.ToLower(strings.TrimSpace(mimeType))]
}

// CatalogHints is the part of the catalog shown to the model so it can suggest product ids
// and copy warehouse labels the resolver understands.
type CatalogHints struct {
	Products []core.Product
	Stores   []core.StoreLocation
}

// ReceiptExtractor reads a receipt image into structured lines.
type ReceiptExtractor interface {
	Extract(ctx context.Context, img ReceiptImage, dir core.Direction, hints CatalogHints) (*ReceiptExtraction, error)
}

// Extractor calls the OpenAI Responses API with the image and a strict JSON schema.
type Extractor struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

func NewExtractor(apiKey, model string, log *zap.Logger) *Extractor {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{client: &client, model: model, log: log}
}

func (e *Extractor) Extract(ctx context.Context, img ReceiptImage, dir core.Direction, hints CatalogHints) (*ReceiptExtraction, error) {
	if !SupportedImageType(img.MimeType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedImage, img.MimeType)
	}
	if len(img.Data) == 0 {
		return nil, errors.New("empty image")
	}

	schemaMap, err := receiptSchema()
	if err != nil {
		return nil, err
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", strings.ToLower(img.MimeType), base64.StdEncoding.EncodeToString(img.Data))
	params := responses.ResponseNewParams{
		Model:        shared.ResponsesModel(e.model),
		Instructions: param.NewOpt(buildReceiptPrompt(dir, hints)),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(responses.ResponseInputMessageContentListParam{
					{OfInputText: &responses.ResponseInputTextParam{
						Text: fmt.Sprintf("Extract this %s receipt.", dir),
					}},
					{OfInputImage: &responses.ResponseInputImageParam{
						ImageURL: param.NewOpt(dataURL),
						Detail:   responses.ResponseInputImageDetailHigh,
					}},
				}, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "stock_receipt_extraction",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("Structured contents of a stock import or export receipt"),
				},
			},
		},
	}

	resp, err := e.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}
	out, err := parseExtraction(content, dir)
	if err != nil {
		return nil, err
	}
	e.log.Debug("receipt extracted",
		zap.String("direction", string(dir)),
		zap.Int("lines", len(out.Lines)),
		zap.Float64("confidence", out.Confidence),
		zap.String("model", e.model),
	)
	return out, nil
}

// parseExtraction decodes, normalizes and validates model output. The receipt type is forced to
// the requested direction; the model only reads it off the page as a sanity check.
func parseExtraction(content string, dir core.Direction) (*ReceiptExtraction, error) {
	var out ReceiptExtraction
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("failed to parse extraction: %w", err)
	}
	out.Normalize()
	if out.ReceiptType == "" {
		out.ReceiptType = string(dir)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("extraction validation failed: %w", err)
	}
	out.ReceiptType = string(dir)
	return &out, nil
}

func buildReceiptPrompt(dir core.Direction, hints CatalogHints) string {
	partner := "customer"
	if dir.IsInbound() {
		partner = "supplier"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You read photos of warehouse %s receipts and return their contents as structured data.
Rules:
1. Copy text exactly as printed; do not translate or correct product names.
2. partner_name, partner_phone and partner_address describe the %s.
3. Numbers are plain strings without currency symbols or thousand separators.
4. If a line clearly refers to a product in the catalog below, set suggested_product_id to its id and match_score to your confidence; otherwise use 0.
5. Copy any warehouse label verbatim, including a code in parentheses.
6. Provide an overall confidence score (0.0-1.0).
`, dir, partner)

	if len(hints.Products) > 0 {
		b.WriteString("\nProduct catalog (id | code | name | unit):\n")
		for i, p := range hints.Products {
			if i == maxHintProducts {
				fmt.Fprintf(&b, "... %d more products omitted\n", len(hints.Products)-maxHintProducts)
				break
			}
			fmt.Fprintf(&b, "%d | %s | %s | %s\n", p.ID, p.Code, p.Name, p.Unit)
		}
	}
	if len(hints.Stores) > 0 {
		b.WriteString("\nWarehouses (id | code | name):\n")
		for _, s := range hints.Stores {
			fmt.Fprintf(&b, "%d | %s | %s\n", s.ID, s.Code, s.Name)
		}
	}
	return b.String()
}

func receiptSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(&ReceiptExtraction{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
