package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sales-dashboard/internal/store"
)

func TestPageHandlers_HandleDashboard(t *testing.T) {
	h := NewPageHandlers(newTestSessions(t, &stubLoader{table: testTable()}), testLogger())

	w := httptest.NewRecorder()
	h.HandleDashboard(w, withSession(httptest.NewRequest(http.MethodGet, "/", nil), "s1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, s := range []string{
		"<title>Sales Dashboard</title>",
		`data-init="@get('/sse/dashboard')"`,
		`<option value="West">West</option>`,
		`<option value="Gadget, Large">`,
		`min="2023-01-05"`,
		`max="2023-02-10"`,
		`id="kpis"`,
	} {
		if !strings.Contains(body, s) {
			t.Errorf("expected page to contain %q", s)
		}
	}
}

func TestPageHandlers_HandleDashboard_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		loader     *stubLoader
		wantStatus int
		wantText   string
	}{
		{
			name:       "connection failure",
			path:       "/",
			loader:     &stubLoader{err: fmt.Errorf("%w: refused", store.ErrConnectionFailure)},
			wantStatus: http.StatusServiceUnavailable,
			wantText:   "The sales database is unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPageHandlers(newTestSessions(t, tt.loader), testLogger())

			req := withSession(httptest.NewRequest(http.MethodGet, tt.path, nil), "s1")
			w := httptest.NewRecorder()
			h.HandleDashboard(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantText) {
				t.Errorf("expected %q in body %s", tt.wantText, w.Body.String())
			}
		})
	}
}
