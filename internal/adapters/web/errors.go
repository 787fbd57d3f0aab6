package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"inventory-intake/internal/ai"
	"inventory-intake/internal/app"
	"inventory-intake/internal/core"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Fields    []core.FieldError `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, r, errorResponse{Error: message, Code: code}, status)
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, resp errorResponse, status int) {
	resp.RequestID = requestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps an ApplicationService error to its HTTP status and error code.
// Anything unrecognised is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var inv *core.InvalidInputError
	switch {
	case errors.As(err, &inv):
		resp.Code, resp.Fields, status = "INVALID_INPUT", inv.Fields, http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidInput):
		resp.Code, status = "INVALID_INPUT", http.StatusBadRequest
	case errors.Is(err, core.ErrUnsubmittable):
		resp.Code, status = "UNSUBMITTABLE", http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrStockChanged):
		resp.Code, status = "STOCK_CHANGED", http.StatusConflict
	case errors.Is(err, app.ErrSessionNotLoaded):
		resp.Code, status = "SESSION_NOT_LOADED", http.StatusServiceUnavailable
	case errors.Is(err, app.ErrProductNotFound):
		resp.Code, status = "NOT_FOUND", http.StatusNotFound
	case errors.Is(err, app.ErrExtractorUnavailable):
		resp.Code, status = "OCR_UNAVAILABLE", http.StatusNotImplemented
	case errors.Is(err, ai.ErrUnsupportedImage):
		resp.Code, status = "UNSUPPORTED_TYPE", http.StatusUnsupportedMediaType
	default:
		resp.Code = "INTERNAL_ERROR"
	}
	writeErrorResponse(w, r, resp, status)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONStatus writes a JSON response with the given status.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// notFound returns a JSON 404 for unknown routes.
func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, "route not found", "NOT_FOUND", http.StatusNotFound)
}
