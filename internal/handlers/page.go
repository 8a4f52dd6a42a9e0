package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	pageTitle     = "Sales Dashboard"
)

type PageHandlers struct {
	sessions *services.Sessions
	logger   *slog.Logger
}

func NewPageHandlers(sessions *services.Sessions, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		sessions: sessions,
		logger:   logger,
	}
}

// HandleDashboard renders the page shell. The first request of a session
// loads its table here, so a dead database surfaces as an error page
// instead of an empty dashboard.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	opts, err := h.sessions.Options(ctx, observability.GetSessionID(ctx))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	view := templates.PageView{Title: pageTitle, Options: opts}
	if err := templates.Dashboard(view).Render(ctx, w); err != nil {
		observability.LoggerFrom(ctx, h.logger).Error("render dashboard", "error", err)
	}
}

func (h *PageHandlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	appErr := errors.FromDomain(err)
	requestID := observability.GetRequestID(ctx)

	level := slog.LevelError
	if appErr.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	observability.LoggerFrom(ctx, h.logger).Log(ctx, level, "page request failed",
		"error_code", appErr.Code,
		"status_code", appErr.StatusCode,
		"cause", appErr.Cause,
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(appErr.StatusCode)
	if renderErr := templates.ErrorPage(pageTitle, appErr.Message, requestID).Render(ctx, w); renderErr != nil {
		h.logger.Error("render error page", "error", renderErr)
	}
}
