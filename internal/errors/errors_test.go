package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/store"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   ErrorCode
		wantStatus int
	}{
		{"connection", fmt.Errorf("load session table: %w", fmt.Errorf("%w: refused", store.ErrConnectionFailure)), CodeConnectionFailure, http.StatusServiceUnavailable},
		{"query", fmt.Errorf("%w: syntax", store.ErrQueryFailure), CodeServiceUnavail, http.StatusServiceUnavailable},
		{"empty table", models.ErrEmptyTable, CodeNoData, http.StatusNotFound},
		{"empty aggregation", fmt.Errorf("top region: %w", services.ErrEmptyAggregation), CodeNoData, http.StatusNotFound},
		{"deadline", context.DeadlineExceeded, CodeServiceUnavail, http.StatusServiceUnavailable},
		{"app error", fmt.Errorf("wrapped: %w", BadRequest("nope")), CodeBadRequest, http.StatusBadRequest},
		{"not found", NotFound("missing"), CodeNotFound, http.StatusNotFound},
		{"unknown", stderrors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDomain(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", got.Code, tt.wantCode)
			}
			if got.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", got.StatusCode, tt.wantStatus)
			}
		})
	}

	if FromDomain(nil) != nil {
		t.Error("FromDomain(nil) should be nil")
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	WriteError(w, logger, fmt.Errorf("%w: refused", store.ErrConnectionFailure), "req-1")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.Code)
	}

	var resp struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error.Code != "CONNECTION_FAILURE" || resp.Error.RequestID != "req-1" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	err := Wrap(store.ErrQueryFailure, CodeServiceUnavail, "x")
	if !stderrors.Is(err, store.ErrQueryFailure) {
		t.Error("AppError should unwrap to its cause")
	}
}
