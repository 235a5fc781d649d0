package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesMetrics(t *testing.T) {
	MessagesTotal.WithLabelValues("delivered").Inc()
	PresenceTransitions.WithLabelValues("online").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"chatbox_messages_total",
		"chatbox_presence_transitions_total",
		"chatbox_connections",
		"chatbox_online_users",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metric %s missing from output", name)
		}
	}
}
