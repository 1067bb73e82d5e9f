package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOutboxMetrics(reg)
	metrics.IncPublished("listing_posted")
	metrics.IncPublished("listing_posted")
	metrics.IncRetry("listing_paid")
	metrics.IncDeadLetter("listing_paid")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "sunflower_outbox_events_total")
	if mf == nil {
		t.Fatalf("outbox metric not found")
	}

	counts := map[string]float64{}
	for _, metric := range mf.GetMetric() {
		for _, outcome := range []string{"published", "retry", "dead_letter"} {
			if matchesLabel(metric.GetLabel(), "outcome", outcome) {
				counts[outcome] += metric.GetCounter().GetValue()
			}
		}
	}
	if counts["published"] != 2 || counts["retry"] != 1 || counts["dead_letter"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestNilOutboxMetricsAreNoops(t *testing.T) {
	var metrics *OutboxMetrics
	metrics.IncPublished("listing_posted")
	NewOutboxMetrics(nil).IncDeadLetter("listing_posted")
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewOutboxMetrics(reg).IncPublished("listing_posted")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sunflower_outbox_events_total") {
		t.Fatalf("expected outbox metric in scrape output")
	}
}
