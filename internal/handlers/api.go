package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

var noStore = map[string]string{
	"Cache-Control": "private, no-store",
}

type APIHandlers struct {
	sessions *services.Sessions
	logger   *slog.Logger
}

func NewAPIHandlers(sessions *services.Sessions, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		sessions: sessions,
		logger:   logger,
	}
}

// HandleDashboard runs the pipeline for the query-string selection. A
// selection that matches nothing is a successful response with no_data set
// and null leaders.
func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := observability.GetRequestID(ctx)

	table, err := h.sessions.Table(ctx, observability.GetSessionID(ctx))
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	sel, err := SelectionFromQuery(table, r.URL.Query())
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	dash, err := services.Run(table, sel)
	if err != nil && !stderrors.Is(err, services.ErrEmptyAggregation) {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	h.write(w, dash)
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts, err := h.sessions.Options(ctx, observability.GetSessionID(ctx))
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(ctx))
		return
	}

	h.write(w, opts)
}

// HandleRefresh drops the caller's loaded table so the next request reads
// the database again.
func (h *APIHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	sessionID := observability.GetSessionID(r.Context())
	h.sessions.Invalidate(sessionID)

	observability.LoggerFrom(r.Context(), h.logger).Info("session table invalidated")
	h.write(w, map[string]any{"invalidated": true})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	}

	h.write(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.write(w, h.sessions.Stats())
}

func (h *APIHandlers) write(w http.ResponseWriter, data any) {
	if err := errors.WriteSuccessWithHeaders(w, data, noStore); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// Version is reported by the health endpoint.
const Version = "1.0.0"
