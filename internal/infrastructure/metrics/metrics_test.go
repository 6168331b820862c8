package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistererRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegisterer(registry)

	if m.RentalsAcquired == nil || m.PollerChecks == nil || m.Refunds == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestCountersAreLabelled(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.RentalsAcquired.WithLabelValues("NGN").Inc()
	m.RentalsAcquired.WithLabelValues("NGN").Inc()
	m.RentalsCancelled.WithLabelValues("expired").Inc()

	if got := testutil.ToFloat64(m.RentalsAcquired.WithLabelValues("NGN")); got != 2 {
		t.Fatalf("expected 2 NGN acquisitions, got %v", got)
	}
	if got := testutil.ToFloat64(m.RentalsCancelled.WithLabelValues("expired")); got != 1 {
		t.Fatalf("expected 1 expired cancellation, got %v", got)
	}
}

func TestNewWithRegistererRejectsDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewWithRegisterer(registry)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected duplicate registration to panic")
		}
	}()
	NewWithRegisterer(registry)
}
