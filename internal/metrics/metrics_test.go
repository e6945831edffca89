package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/tickets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if got := routeFromContext(r.Context()); got != "/api/tickets/{id}" {
			t.Errorf("unexpected db route label %q", got)
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	before := testutil.ToFloat64(httpErrorsTotal.WithLabelValues(http.MethodGet, "/api/tickets/{id}", "500"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tickets/42", nil))

	after := testutil.ToFloat64(httpErrorsTotal.WithLabelValues(http.MethodGet, "/api/tickets/{id}", "500"))
	if after-before != 1 {
		t.Fatalf("expected one recorded server error, got %v", after-before)
	}
}

func TestNotificationCounters(t *testing.T) {
	before := testutil.ToFloat64(notificationsPublished.WithLabelValues("TicketScheduled"))
	NotificationPublished("TicketScheduled")
	if got := testutil.ToFloat64(notificationsPublished.WithLabelValues("TicketScheduled")); got-before != 1 {
		t.Fatalf("expected counter to advance by one, got %v", got-before)
	}

	failures := testutil.ToFloat64(notificationFailures)
	NotificationFailed()
	if got := testutil.ToFloat64(notificationFailures); got-failures != 1 {
		t.Fatalf("expected failure counter to advance by one, got %v", got-failures)
	}

	open := testutil.ToFloat64(hubConnections)
	HubConnectionOpened()
	HubConnectionOpened()
	HubConnectionClosed()
	if got := testutil.ToFloat64(hubConnections); got-open != 1 {
		t.Fatalf("expected one open connection, got %v", got-open)
	}
}

func TestObserveDBLatencyDefaultsRoute(t *testing.T) {
	ObserveDBLatency(context.Background(), "tickets.get_by_id", time.Now())
	if got := testutil.CollectAndCount(dbLatency, "shalendar_db_latency_seconds"); got == 0 {
		t.Fatalf("expected db latency samples")
	}
}
