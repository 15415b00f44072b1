package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	if m.Purchases == nil || m.CatalogReads == nil || m.UpstreamRequests == nil || m.DBConnections == nil {
		t.Fatalf("expected metrics to be initialized")
	}

	m.ObservePurchase("success", 10*time.Millisecond)
	m.ObserveCatalogRead("fresh")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) < 2 {
		t.Fatalf("expected registered families, got %d", len(families))
	}
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestPurchaseRecorder(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePurchase("success", time.Millisecond)
	m.ObservePurchase("success", time.Millisecond)
	m.ObservePurchase("insufficient_funds", time.Millisecond)
	m.IncPurchaseRetry()

	if got := testutil.ToFloat64(m.Purchases.WithLabelValues("success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.Purchases.WithLabelValues("insufficient_funds")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.PurchaseRetries); got != 1 {
		t.Fatalf("expected 1 retry, got %v", got)
	}
}

func TestCatalogRecorder(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCatalogRead("stale")
	m.ObserveCatalogRefresh("ok", time.Second)
	m.ObserveCatalogRefresh("failed", time.Second)

	if got := testutil.ToFloat64(m.CatalogReads.WithLabelValues("stale")); got != 1 {
		t.Fatalf("expected 1 stale read, got %v", got)
	}
	if got := testutil.ToFloat64(m.CatalogRefreshes.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected 1 failed refresh, got %v", got)
	}
}

func TestUpstreamAndOutbox(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveUpstream(true, "ok", time.Second)
	m.ObserveUpstream(false, "error", time.Second)
	m.ObserveOutbox(nil)
	m.ObserveOutbox(errors.New("broker down"))
	m.ObserveAuth("login", "failed")
	m.ObserveRateLimited("/api/v1/auth/login")
	m.SetDBConnections(3)

	if got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("true", "ok")); got != 1 {
		t.Fatalf("expected tradable request, got %v", got)
	}
	if got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("false", "error")); got != 1 {
		t.Fatalf("expected non-tradable failure, got %v", got)
	}
	if testutil.ToFloat64(m.OutboxPublished) != 1 || testutil.ToFloat64(m.OutboxFailures) != 1 {
		t.Fatalf("unexpected outbox counters")
	}
	if got := testutil.ToFloat64(m.AuthAttempts.WithLabelValues("login", "failed")); got != 1 {
		t.Fatalf("expected auth failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.RateLimitHits.WithLabelValues("/api/v1/auth/login")); got != 1 {
		t.Fatalf("expected rate limit hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.DBConnections); got != 3 {
		t.Fatalf("expected 3 connections, got %v", got)
	}
}
