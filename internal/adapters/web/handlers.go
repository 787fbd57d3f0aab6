package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"inventory-intake/internal/app"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	log    *zap.Logger
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))
	r.NotFound(notFound)

	// ── Health ───────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// Receipt upload: body limit is managed inside the handler (multipart, up to 10 MB).
	r.Post("/api/intake/scan", h.apiScanReceipt)

	// All other endpoints: 1 MB body limit to prevent unbounded request abuse.
	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Intake session ──────────────────────────────────────────────────
		r.Post("/api/intake/refresh", h.apiRefresh)
		r.Post("/api/intake/refresh/stock", h.apiRefreshStock)
		r.Post("/api/intake/resolve", h.apiResolve)
		r.Post("/api/intake/revalidate", h.apiRevalidate)
		r.Post("/api/intake/transactions", h.apiSubmitTransaction)

		// ── Stock ───────────────────────────────────────────────────────────
		r.Get("/api/stock/{productID}", h.apiGetStock)
	})

	h.router = r
	return r
}

// logger returns the request-scoped logger, tagged with the request id.
func (h *Handler) logger(r *http.Request) *zap.Logger {
	return loggerFromContext(r.Context(), h.log)
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
