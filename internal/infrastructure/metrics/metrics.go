package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Rental metrics
	RentalsAcquired  *prometheus.CounterVec
	RentalsCompleted prometheus.Counter
	RentalsFailed    prometheus.Counter
	RentalsCancelled *prometheus.CounterVec
	AcquireErrors    *prometheus.CounterVec
	AcquireDuration  prometheus.Histogram
	OverridePriced   prometheus.Counter

	// Ledger metrics
	Charges            *prometheus.CounterVec
	Refunds            *prometheus.CounterVec
	Deposits           *prometheus.CounterVec
	ChargesIncomplete  prometheus.Counter
	RefundsIncomplete  prometheus.Counter
	UnpaidRentalsFound prometheus.Gauge

	// Poller metrics
	PollerCycles   prometheus.Counter
	PollerChecks   *prometheus.CounterVec
	PollerErrors   *prometheus.CounterVec
	PollerDuration prometheus.Histogram

	// Issuer metrics
	IssuerRequests *prometheus.CounterVec
	IssuerDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RentalsAcquired: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numrent_rentals_acquired_total",
				Help: "Total number of rentals acquired by charge currency",
			},
			[]string{"currency"},
		),
		RentalsCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "numrent_rentals_completed_total",
			Help: "Total number of rentals that received a code",
		}),
		RentalsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "numrent_rentals_failed_total",
			Help: "Total number of rentals moved to error",
		}),
		RentalsCancelled: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numrent_rentals_cancelled_total",
				Help: "Total number of rentals cancelled by trigger",
			},
			[]string{"trigger"},
		),
		AcquireErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numrent_acquire_errors_total",
				Help: "Total number of failed acquisitions by reason",
			},
			[]string{"reason"},
		),
		AcquireDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "numrent_acquire_duration_seconds",
			Help:    "Duration of rental acquisition",
			Buckets: prometheus.DefBuckets,
		}),
		OverridePriced: f.NewCounter(prometheus.CounterOpts{
			Name: "numrent_override_priced_total",
			Help: "Total number of rentals priced from the override table",
		}),

		Charges: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numrent_ledger_charges_total",
				Help: "Total number of rental charges by currency",
			},
			[]string{"currency"},
		),
		Refunds: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numrent_ledger_refunds_total",
				Help: "Total number of refunds by currency",
			},
			[]string{"currency"},
		),
		Deposits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numrent_ledger_deposits_total",
				Help: "Total number of deposits by currency",
			},
			[]string{"currency"},
		),
		ChargesIncomplete: f.NewCounter(prometheus.CounterOpts{
			Name: "numrent_ledger_charges_incomplete_total",
			Help: "Rentals committed whose debit did not complete",
		}),
		RefundsIncomplete: f.NewCounter(prometheus.CounterOpts{
			Name: "numrent_ledger_refunds_incomplete_total",
			Help: "Cancellations left in cancelling because the refund did not complete",
		}),
		UnpaidRentalsFound: f.NewGauge(prometheus.GaugeOpts{
			Name: "numrent_unpaid_rentals",
			Help: "Unpaid rentals seen by the last reconciliation run",
		}),

		PollerCycles: f.NewCounter(prometheus.CounterOpts{
			Name: "numrent_poller_cycles_total",
			Help: "Total number of poller cycles",
		}),
		PollerChecks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numrent_poller_checks_total",
				Help: "Delivery checks by outcome",
			},
			[]string{"outcome"},
		),
		PollerErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numrent_poller_errors_total",
				Help: "Per-rental poller failures by stage",
			},
			[]string{"stage"},
		),
		PollerDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "numrent_poller_cycle_duration_seconds",
			Help:    "Duration of a poller cycle",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60},
		}),

		IssuerRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numrent_issuer_requests_total",
				Help: "Requests to the number issuer by operation and status",
			},
			[]string{"operation", "status"},
		),
		IssuerDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "numrent_issuer_duration_seconds",
				Help:    "Number issuer request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		RateLimitHits: f.NewCounter(prometheus.CounterOpts{
			Name: "numrent_rate_limit_hits_total",
			Help: "Total rate limit hits",
		}),
	}
}
