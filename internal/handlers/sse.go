package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	sessions *services.Sessions
	logger   *slog.Logger
}

func NewSSEHandlers(sessions *services.Sessions, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		sessions: sessions,
		logger:   logger,
	}
}

// HandleDashboard reads the filter signals, runs the pipeline and patches
// the KPI cards and chart signals.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	var signals templates.Signals
	readErr := datastar.ReadSignals(r, &signals)

	sse := datastar.NewSSE(w, r)
	logger := observability.LoggerFrom(r.Context(), h.logger)

	if readErr != nil {
		h.patchError(r.Context(), sse, errors.BadRequestWrap(readErr, "Could not read the filter selection"))
		return
	}

	h.render(r.Context(), sse, logger, signals)
}

// HandleRefresh reloads the session's table and then reloads the page so
// the filter options reflect the new data.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := observability.GetSessionID(ctx)
	logger := observability.LoggerFrom(ctx, h.logger)

	sse := datastar.NewSSE(w, r)

	h.sessions.Invalidate(sessionID)
	if _, err := h.sessions.Table(ctx, sessionID); err != nil {
		logger.Error("reload session table", "error", err)
		h.patchError(ctx, sse, err)
		return
	}

	if err := sse.Redirect("/"); err != nil {
		logger.Warn("send redirect", "error", err)
	}
}

func (h *SSEHandlers) render(ctx context.Context, sse *datastar.ServerSentEventGenerator, logger *slog.Logger, signals templates.Signals) {
	table, err := h.sessions.Table(ctx, observability.GetSessionID(ctx))
	if err != nil {
		logger.Error("load session table", "error", err)
		h.patchError(ctx, sse, err)
		return
	}

	sel, err := SelectionFromSignals(table, signals)
	if err != nil {
		h.patchError(ctx, sse, err)
		return
	}

	dash, err := services.Run(table, sel)
	if err != nil && !stderrors.Is(err, services.ErrEmptyAggregation) {
		h.patchError(ctx, sse, err)
		return
	}

	html, err := templates.Render(ctx, templates.KPICards(dash))
	if err != nil {
		logger.Error("render kpi cards", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		logger.Warn("patch kpi cards", "error", err)
		return
	}

	charts, err := json.Marshal(templates.ChartSignals{
		SalesByProduct: dash.SalesByProduct,
		SalesByMonth:   dash.SalesByMonth,
	})
	if err != nil {
		logger.Error("marshal chart signals", "error", err)
		return
	}
	if err := sse.PatchSignals(charts); err != nil {
		logger.Warn("patch chart signals", "error", err)
		return
	}

	h.clearError(ctx, sse)
}

func (h *SSEHandlers) patchError(ctx context.Context, sse *datastar.ServerSentEventGenerator, err error) {
	appErr := errors.FromDomain(err)
	html, renderErr := templates.Render(ctx, templates.ErrorBanner(appErr.Message))
	if renderErr != nil {
		observability.LoggerFrom(ctx, h.logger).Error("render error banner", "error", renderErr)
		return
	}
	if patchErr := sse.PatchElements(html); patchErr != nil {
		observability.LoggerFrom(ctx, h.logger).Warn("patch error banner", "error", patchErr)
	}
}

func (h *SSEHandlers) clearError(ctx context.Context, sse *datastar.ServerSentEventGenerator) {
	html, err := templates.Render(ctx, templates.ErrorBanner(""))
	if err != nil {
		observability.LoggerFrom(ctx, h.logger).Warn("render cleared error banner", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		observability.LoggerFrom(ctx, h.logger).Warn("clear error banner", "error", err)
	}
}
