package handler

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/darkodi/tinyurl/internal/apperrors"
	"github.com/darkodi/tinyurl/internal/logger"
	"github.com/darkodi/tinyurl/internal/middleware"
	"github.com/darkodi/tinyurl/internal/model"
	"github.com/darkodi/tinyurl/internal/service"
	"github.com/darkodi/tinyurl/internal/validator"
)

const maxBodyBytes = 1 << 20

// URLService is what the handler needs from the service layer.
type URLService interface {
	CreateShortURL(ctx context.Context, req model.CreateURLRequest) (*model.CreateURLResponse, error)
	Resolve(ctx context.Context, shortCode string) (string, error)
	GetURLStats(ctx context.Context, shortCode string) (*model.URL, error)
	CheckHealth(ctx context.Context) service.HealthReport
}

// URLHandler handles HTTP requests for URL operations
type URLHandler struct {
	service   URLService
	validator *validator.URLValidator
	log       *logger.Logger
}

// NewURLHandler creates a new handler instance
func NewURLHandler(svc URLService, v *validator.URLValidator, log *logger.Logger) *URLHandler {
	if v == nil {
		v = validator.NewURLValidator()
	}
	return &URLHandler{
		service:   svc,
		validator: v,
		log:       log.Named("handler"),
	}
}

// ============ HANDLERS ============

// HandleShorten creates a new short URL
// POST /api/v1/shorten
func (h *URLHandler) HandleShorten(w http.ResponseWriter, r *http.Request) {
	// Parse JSON body
	var req model.CreateURLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.log.Debug("Rejected shorten body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		apperrors.InvalidJSON(`body must be a JSON object with a "long_url" string`).WriteJSON(w)
		return
	}

	if appErr := h.validator.ValidateURL(req.LongURL); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	resp, err := h.service.CreateShortURL(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyURL):
			apperrors.MissingField("long_url").WriteJSON(w)
		case errors.Is(err, service.ErrValidation):
			apperrors.InvalidURL("URL must be valid http/https").WriteJSON(w)
		default:
			h.log.Error("Failed to shorten URL",
				"request_id", middleware.GetRequestID(r.Context()),
				"error", err,
			)
			writeServerError(w, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

// HandleRedirect redirects to the original URL
// GET /{shortCode}
func (h *URLHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	shortCode := r.PathValue("shortCode")

	// A code the encoder cannot produce is simply unknown
	if appErr := h.validator.ValidateShortCode(shortCode); appErr != nil {
		apperrors.URLNotFound(shortCode).WriteJSON(w)
		return
	}

	longURL, err := h.service.Resolve(r.Context(), shortCode)
	if err != nil {
		h.writeLookupError(w, r, shortCode, err)
		return
	}

	http.Redirect(w, r, longURL, http.StatusFound)
}

// HandleStats returns statistics for a short URL
// GET /{shortCode}/stats
func (h *URLHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	shortCode := r.PathValue("shortCode")

	if appErr := h.validator.ValidateShortCode(shortCode); appErr != nil {
		apperrors.URLNotFound(shortCode).WriteJSON(w)
		return
	}

	stats, err := h.service.GetURLStats(r.Context(), shortCode)
	if err != nil {
		h.writeLookupError(w, r, shortCode, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// HandleHealth reports store and cache status
// GET /api/v1/health
func (h *URLHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.service.CheckHealth(r.Context())

	status := http.StatusOK
	if report.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, report)
}

// HandleTest is the plain liveness check
// GET /api/v1/test
func (h *URLHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Server is running!"))
}

func (h *URLHandler) writeLookupError(w http.ResponseWriter, r *http.Request, shortCode string, err error) {
	if errors.Is(err, service.ErrURLNotFound) {
		apperrors.URLNotFound(shortCode).WriteJSON(w)
		return
	}
	h.log.Error("Failed to look up short code",
		"request_id", middleware.GetRequestID(r.Context()),
		"short_code", shortCode,
		"error", err,
	)
	writeServerError(w, err)
}

// writeServerError never exposes err to the client.
func writeServerError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrStore) {
		apperrors.DatabaseError().WriteJSON(w)
		return
	}
	apperrors.Internal("").WriteJSON(w)
}

func (h *URLHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("Failed to write response", "error", err)
	}
}

// ============ ROUTER SETUP ============

// SetupRoutes configures all HTTP routes. shortenMiddleware wraps only the
// shorten endpoint, which is where rate limiting applies.
func (h *URLHandler) SetupRoutes(shortenMiddleware ...middleware.Middleware) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/v1/shorten", middleware.Chain(http.HandlerFunc(h.HandleShorten), shortenMiddleware...))
	// Fixed routes stay under /api/v1/ so they never shadow a single-segment short code.
	mux.HandleFunc("GET /api/v1/health", h.HandleHealth)
	mux.HandleFunc("GET /api/v1/test", h.HandleTest)
	mux.HandleFunc("GET /{shortCode}/stats", h.HandleStats)
	mux.HandleFunc("GET /{shortCode}", h.HandleRedirect)

	return mux
}
