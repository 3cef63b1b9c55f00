package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetrics_ObserveRequestExposedViaHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("8080-HTTP", "/widgets", "200", 0.01)
	m.IncActiveConns("8080-HTTP")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "relaygate_requests_total") {
		t.Fatalf("expected requests_total in scrape output, got:\n%s", body)
	}
	if !strings.Contains(body, "relaygate_active_connections") {
		t.Fatalf("expected active_connections in scrape output, got:\n%s", body)
	}

	// The duration histogram must carry the same path label as the request
	// counter, per the {mapping_key, path} keying the observability hook
	// documents — a per-listener-only histogram would silently lose the
	// per-route timing breakdown.
	durationLine := ""
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "relaygate_request_duration_seconds_count{") {
			durationLine = line
			break
		}
	}
	if durationLine == "" {
		t.Fatalf("expected a relaygate_request_duration_seconds_count sample, got:\n%s", body)
	}
	if !strings.Contains(durationLine, `listener_key="8080-HTTP"`) || !strings.Contains(durationLine, `path="/widgets"`) {
		t.Fatalf("expected duration histogram labeled by listener_key and path, got: %s", durationLine)
	}
}

func TestMetrics_NilReceiverIsNoOp(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("k", "/p", "200", 0.01)
	m.IncActiveConns("k")
	m.DecActiveConns("k")
}
