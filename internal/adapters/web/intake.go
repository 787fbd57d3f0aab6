package web

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"inventory-intake/internal/ai"
	"inventory-intake/internal/app"
	"inventory-intake/internal/core"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxUploadSize = 10 << 20 // 10 MB

// apiRefresh handles POST /api/intake/refresh.
func (h *Handler) apiRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Refresh(r.Context())
	if err != nil {
		h.logger(r).Error("refresh failed", zap.Error(err))
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRefreshStock handles POST /api/intake/refresh/stock.
func (h *Handler) apiRefreshStock(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RefreshStock(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiResolve handles POST /api/intake/resolve.
// Body: { direction, supplier_id?, partner?: {name, phone?, address?}, lines: [RawLine] }
func (h *Handler) apiResolve(w http.ResponseWriter, r *http.Request) {
	var req app.ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.Resolve(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRevalidate handles POST /api/intake/revalidate.
// Body: { direction, line: ResolvedLine, quantity, discount_percent }
func (h *Handler) apiRevalidate(w http.ResponseWriter, r *http.Request) {
	var req app.RevalidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	line, err := h.svc.Revalidate(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, line)
}

// apiSubmitTransaction handles POST /api/intake/transactions.
// Body: { direction, partner: {id} | {new: {name, phone?, address?}}, note?, idempotency_key?, lines: [ResolvedLine] }
func (h *Handler) apiSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req app.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.SubmitTransaction(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if result.Transaction.Replayed {
		status = http.StatusOK
	}
	writeJSONStatus(w, status, result)
}

// apiGetStock handles GET /api/stock/{productID}.
func (h *Handler) apiGetStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, "productID must be a positive integer", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.GetStock(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiScanReceipt handles POST /api/intake/scan.
// Multipart form: file (receipt image), receipt_type (IMPORT | EXPORT).
func (h *Handler) apiScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, r, "request too large or malformed", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	dir, err := core.ParseDirection(r.FormValue("receipt_type"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, "no file provided", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, r, "failed to read uploaded file", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > maxUploadSize {
		writeError(w, r, fmt.Sprintf("file exceeds maximum size of %d MB", maxUploadSize>>20),
			"FILE_TOO_LARGE", http.StatusRequestEntityTooLarge)
		return
	}

	// Trust the bytes, not the client's Content-Type.
	mimeType := strings.ToLower(http.DetectContentType(data))
	if !ai.SupportedImageType(mimeType) {
		writeError(w, r, fmt.Sprintf("file type %q not allowed; accepted: jpeg, png, webp, gif", mimeType),
			"UNSUPPORTED_TYPE", http.StatusUnsupportedMediaType)
		return
	}

	result, err := h.svc.ScanReceipt(r.Context(), app.ScanRequest{
		Direction: dir,
		Image:     app.Attachment{MimeType: mimeType, Data: data},
	})
	if err != nil {
		h.logger(r).Warn("receipt scan failed", zap.String("filename", fh.Filename), zap.Error(err))
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
