// Package statuspoller drives outstanding rentals forward by asking the
// number issuer whether an SMS code has arrived.
package statuspoller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/infrastructure/metrics"
	"github.com/iho/numrent/internal/usecase"
)

// Rentals is the part of the rental lifecycle the poller drives.
type Rentals interface {
	ListPollable(ctx context.Context, stuckAfter time.Duration, limit int) ([]*domain.Rental, error)
	MarkPolled(ctx context.Context, rentalID string) error
	ApplyStatus(ctx context.Context, rentalID string, state domain.RentalState, code string) (*domain.Rental, error)
	Cancel(ctx context.Context, rentalID string, trigger usecase.CancelTrigger) (*domain.RefundResult, error)
}

// Poller periodically checks waiting rentals with the issuer.
type Poller struct {
	rentals      Rentals
	issuer       usecase.NumberIssuer
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	batchSize    int
	interval     time.Duration
	requestDelay time.Duration
	stuckAfter   time.Duration
	now          func() time.Time
}

// Config for Poller.
type Config struct {
	Rentals      Rentals
	Issuer       usecase.NumberIssuer
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
	BatchSize    int           // Rentals fetched per cycle
	Interval     time.Duration // Time between cycles
	RequestDelay time.Duration // Pause between issuer calls
	StuckAfter   time.Duration // Age after which a cancelling rental is resumed
	Clock        func() time.Time
}

// New creates a new Poller.
func New(cfg Config) *Poller {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.StuckAfter <= 0 {
		cfg.StuckAfter = time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}

	return &Poller{
		rentals:      cfg.Rentals,
		issuer:       cfg.Issuer,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.With().Str("component", "status_poller").Logger(),
		batchSize:    cfg.BatchSize,
		interval:     cfg.Interval,
		requestDelay: cfg.RequestDelay,
		stuckAfter:   cfg.StuckAfter,
		now:          cfg.Clock,
	}
}

// Start polls until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info().
		Int("batch_size", p.batchSize).
		Dur("interval", p.interval).
		Dur("request_delay", p.requestDelay).
		Msg("status poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if err := p.poll(ctx); err != nil {
		p.logger.Error().Err(err).Msg("error polling rentals on start")
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("status poller shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				p.logger.Error().Err(err).Msg("error polling rentals")
			}
		}
	}
}

// poll runs one cycle. Per-rental failures are logged and counted; only a
// failure to list rentals is returned.
func (p *Poller) poll(ctx context.Context) error {
	start := time.Now()
	if p.metrics != nil {
		p.metrics.PollerCycles.Inc()
		defer func() {
			p.metrics.PollerDuration.Observe(time.Since(start).Seconds())
		}()
	}

	rentals, err := p.rentals.ListPollable(ctx, p.stuckAfter, p.batchSize)
	if err != nil {
		return err
	}
	if len(rentals) == 0 {
		return nil
	}

	p.logger.Debug().Int("count", len(rentals)).Msg("polling rentals")

	calledIssuer := false
	for _, rental := range rentals {
		if ctx.Err() != nil {
			return nil
		}

		if calledIssuer && !p.sleep(ctx) {
			return nil
		}

		calledIssuer = p.handle(ctx, rental)

		// Polled rentals queue up behind the ones not yet looked at.
		if err := p.rentals.MarkPolled(ctx, rental.ID); err != nil {
			p.failed("mark", p.logger.With().Str("rental_id", rental.ID).Logger(), err)
		}
	}

	return nil
}

// handle advances one rental and reports whether it called the issuer.
func (p *Poller) handle(ctx context.Context, rental *domain.Rental) bool {
	now := p.now()
	log := p.logger.With().Str("rental_id", rental.ID).Logger()

	switch rental.State {
	case domain.RentalStateCancelling:
		if now.Sub(rental.UpdatedAt) < p.stuckAfter {
			return false
		}
		p.cancel(ctx, log, rental, usecase.CancelTriggerResume)
		return true

	case domain.RentalStateWaiting:
		if rental.IsExpired(now) {
			p.cancel(ctx, log, rental, usecase.CancelTriggerExpired)
			return true
		}

	default:
		return false
	}

	delivery, err := p.issuer.CheckDelivery(ctx, rental.IssuerID)
	if err != nil {
		p.failed("check", log, err)
		return true
	}
	p.observe(string(delivery.State))

	switch delivery.State {
	case domain.DeliveryDelivered:
		if _, err := p.rentals.ApplyStatus(ctx, rental.ID, domain.RentalStateCompleted, delivery.Code); err != nil {
			p.failed("apply", log, err)
		}
	case domain.DeliveryNotFound:
		if _, err := p.rentals.ApplyStatus(ctx, rental.ID, domain.RentalStateError, ""); err != nil {
			p.failed("apply", log, err)
		}
	case domain.DeliveryCancelled:
		p.cancel(ctx, log, rental, usecase.CancelTriggerIssuer)
	}

	return true
}

func (p *Poller) cancel(ctx context.Context, log zerolog.Logger, rental *domain.Rental, trigger usecase.CancelTrigger) {
	p.observe("cancel_" + string(trigger))

	result, err := p.rentals.Cancel(ctx, rental.ID, trigger)
	if err != nil {
		p.failed("cancel", log, err)
		return
	}

	log.Info().
		Str("trigger", string(trigger)).
		Str("refund", result.Amount.String()).
		Str("currency", string(result.Currency)).
		Bool("issuer_released", result.IssuerReleased).
		Msg("rental cancelled by poller")
}

func (p *Poller) failed(stage string, log zerolog.Logger, err error) {
	if p.metrics != nil {
		p.metrics.PollerErrors.WithLabelValues(stage).Inc()
	}
	log.Error().Err(err).Str("stage", stage).Msg("failed to poll rental")
}

func (p *Poller) observe(outcome string) {
	if p.metrics != nil {
		p.metrics.PollerChecks.WithLabelValues(outcome).Inc()
	}
}

func (p *Poller) sleep(ctx context.Context) bool {
	if p.requestDelay <= 0 {
		return true
	}

	timer := time.NewTimer(p.requestDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
