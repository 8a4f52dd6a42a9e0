package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveLoad(t *testing.T) {
	before := testutil.ToFloat64(TableLoads.WithLabelValues(StatusOK))

	ObserveLoad(time.Second, 42, StatusOK)
	ObserveLoad(time.Second, 0, StatusConnection)

	if got := testutil.ToFloat64(TableLoads.WithLabelValues(StatusOK)); got != before+1 {
		t.Errorf("ok loads = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(TableRows); got != 42 {
		t.Errorf("rows gauge = %v, want 42 (failed loads must not reset it)", got)
	}
}

func TestObservePipeline(t *testing.T) {
	before := testutil.ToFloat64(EmptySelections)

	ObservePipeline(time.Millisecond, false)
	ObservePipeline(time.Millisecond, true)

	if got := testutil.ToFloat64(EmptySelections); got != before+1 {
		t.Errorf("empty selections = %v, want %v", got, before+1)
	}
}

func TestObserveRequest(t *testing.T) {
	ObserveRequest("GET", "GET /api/dashboard", 200, time.Millisecond)

	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "GET /api/dashboard", "200")); got < 1 {
		t.Errorf("requests = %v, want at least 1", got)
	}
}
