// Package api exposes the overview service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"StockOverview/internal/collector"
	"StockOverview/internal/overview"
)

// ErrorResponse represents an error response sent to the client
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache,omitempty"`
}

// Handler serves overview requests.
type Handler struct {
	Service *overview.Service
	// CacheHealth reports the cache backend state; nil skips the check.
	CacheHealth func(ctx context.Context) error
}

// NewHandler creates a Handler.
func NewHandler(svc *overview.Service) *Handler {
	return &Handler{Service: svc}
}

// Router returns the routes served by h.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/overview/{symbol}", h.HandleOverview).Methods(http.MethodGet)
	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	return r
}

// HandleOverview handles GET /overview/{symbol}?selected=KEY. The upstream
// token is taken from the Authorization header, else the configured one.
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	req := overview.Request{
		Symbol:   mux.Vars(r)["symbol"],
		Token:    bearer(r),
		Selected: r.URL.Query().Get("selected"),
	}

	payload, err := h.Service.Overview(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		log.Error().Err(err).Str("symbol", req.Symbol).Int("status", status).Msg("overview")
		msg := err.Error()
		if status == http.StatusInternalServerError {
			// Unclassified errors may carry internal detail; it stays in the log.
			msg = http.StatusText(status)
		}
		sendError(w, msg, status)
		return
	}
	sendJSON(w, http.StatusOK, payload)
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	status := http.StatusOK
	if h.CacheHealth != nil {
		resp.Cache = "ok"
		if err := h.CacheHealth(r.Context()); err != nil {
			log.Warn().Err(err).Msg("cache health")
			resp.Status = "degraded"
			resp.Cache = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	sendJSON(w, status, resp)
}

func statusFor(err error) int {
	var ue *collector.UpstreamError
	switch {
	case errors.Is(err, overview.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(err, &ue), errors.Is(err, collector.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, ErrorResponse{Error: message})
}
