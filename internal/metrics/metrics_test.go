package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.BackfillResult("saved")
	m.BackfillResult("saved")
	m.BackfillResult("error")
	m.WebhookEvent("duplicate")

	if got := testutil.ToFloat64(m.backfillTotal.WithLabelValues("saved")); got != 2 {
		t.Errorf("expected 2 saved, got %v", got)
	}
	if got := testutil.ToFloat64(m.backfillTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
	if got := testutil.ToFloat64(m.webhookEvents.WithLabelValues("duplicate")); got != 1 {
		t.Errorf("expected 1 duplicate, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/my/orders", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `food_order_http_requests_total{code="200",method="GET",route="/api/my/orders"} 1`) {
		t.Errorf("request counter missing from output:\n%s", body)
	}
}
