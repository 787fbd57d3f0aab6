package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"inventory-intake/internal/app"
	"inventory-intake/internal/core"
)

// ErrUsage is returned for an unknown subcommand or missing arguments.
var ErrUsage = errors.New("usage")

const usage = `Available commands:
  refresh                         reload catalog and stock
  resolve   (res, r)              resolve a ResolveRequest read as JSON from stdin
  revalidate (rev)                revalidate a RevalidateRequest read as JSON from stdin
  submit    (sub)                 submit a SubmitRequest read as JSON from stdin
  scan      (s) <image> <IMPORT|EXPORT>
  stock     (st) <productID>`

// Run executes a one-shot CLI command against a refreshed session.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w\n%s", ErrUsage, usage)
	}

	switch args[0] {
	case "refresh":
		result, err := svc.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		fmt.Fprintf(stdout, "Loaded %d products, %d stores, %d suppliers, %d customers, %d stock records.\n",
			result.Products, result.Stores, result.Suppliers, result.Customers, result.StockRecords)

	case "resolve", "res", "r":
		var req app.ResolveRequest
		if err := json.NewDecoder(stdin).Decode(&req); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		result, err := svc.Resolve(ctx, req)
		if err != nil {
			return fmt.Errorf("resolve failed: %w", err)
		}
		return encode(stdout, result)

	case "revalidate", "rev":
		var req app.RevalidateRequest
		if err := json.NewDecoder(stdin).Decode(&req); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		line, err := svc.Revalidate(ctx, req)
		if err != nil {
			return fmt.Errorf("revalidate failed: %w", err)
		}
		return encode(stdout, line)

	case "submit", "sub":
		var req app.SubmitRequest
		if err := json.NewDecoder(stdin).Decode(&req); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		result, err := svc.SubmitTransaction(ctx, req)
		if err != nil {
			return fmt.Errorf("submit failed: %w", err)
		}
		return encode(stdout, result)

	case "scan", "s":
		if len(args) < 3 {
			return fmt.Errorf("%w: app scan <image> <IMPORT|EXPORT>", ErrUsage)
		}
		dir, err := core.ParseDirection(args[2])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		result, err := svc.ScanReceipt(ctx, app.ScanRequest{
			Direction: dir,
			Image:     app.Attachment{MimeType: http.DetectContentType(data), Data: data},
		})
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		return encode(stdout, result)

	case "stock", "st":
		if len(args) < 2 {
			return fmt.Errorf("%w: app stock <productID>", ErrUsage)
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: productID must be an integer", ErrUsage)
		}
		result, err := svc.GetStock(ctx, id)
		if err != nil {
			return err
		}
		printStock(stdout, result)

	default:
		return fmt.Errorf("%w: unknown command %s\n%s", ErrUsage, args[0], usage)
	}
	return nil
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStock(w io.Writer, result *app.StockResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 62))
	fmt.Fprintf(w, "  %s — %s (%s)\n", result.Product.Code, result.Product.Name, result.Product.Unit)
	fmt.Fprintf(w, "  Total on hand: %d\n", result.Total)
	fmt.Fprintln(w, strings.Repeat("=", 62))
	fmt.Fprintf(w, "  %-8s %-24s %8s %8s %9s\n", "CODE", "STORE", "QTY", "MAX", "HEADROOM")
	fmt.Fprintln(w, strings.Repeat("-", 62))
	for _, s := range result.Stores {
		maxCap := "-"
		if s.MaxCapacity != nil {
			maxCap = strconv.FormatInt(*s.MaxCapacity, 10)
		}
		fmt.Fprintf(w, "  %-8s %-24s %8d %8s %9d\n", s.Store.Code, s.Store.Name, s.Quantity, maxCap, s.Headroom)
	}
	fmt.Fprintln(w, strings.Repeat("=", 62))
}
