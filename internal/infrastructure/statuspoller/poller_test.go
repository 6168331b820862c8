package statuspoller

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/infrastructure/metrics"
	"github.com/iho/numrent/internal/usecase"
	"github.com/iho/numrent/internal/usecase/mocks"
)

var pollNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type appliedStatus struct {
	id    string
	state domain.RentalState
	code  string
}

type cancelCall struct {
	id      string
	trigger usecase.CancelTrigger
}

type stubRentals struct {
	mu        sync.Mutex
	pollable  []*domain.Rental
	listErr   error
	applyErrs map[string]error
	cancelErr map[string]error
	applied   []appliedStatus
	cancelled []cancelCall
	marked    []string
}

// ListPollable returns unmarked rentals first, then marked ones in the
// order they were marked.
func (s *stubRentals) ListPollable(ctx context.Context, stuckAfter time.Duration, limit int) ([]*domain.Rental, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rank := make(map[string]int, len(s.marked))
	for i, id := range s.marked {
		rank[id] = i + 1
	}
	out := append([]*domain.Rental(nil), s.pollable...)
	sort.SliceStable(out, func(i, j int) bool { return rank[out[i].ID] < rank[out[j].ID] })

	if len(out) > limit {
		return out[:limit], nil
	}
	return out, nil
}

func (s *stubRentals) MarkPolled(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.marked {
		if m == id {
			s.marked = append(s.marked[:i], s.marked[i+1:]...)
			break
		}
	}
	s.marked = append(s.marked, id)
	return nil
}

func (s *stubRentals) ApplyStatus(ctx context.Context, id string, state domain.RentalState, code string) (*domain.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.applyErrs[id]; err != nil {
		return nil, err
	}
	s.applied = append(s.applied, appliedStatus{id: id, state: state, code: code})
	return &domain.Rental{ID: id, State: state}, nil
}

func (s *stubRentals) Cancel(ctx context.Context, id string, trigger usecase.CancelTrigger) (*domain.RefundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cancelErr[id]; err != nil {
		return nil, err
	}
	s.cancelled = append(s.cancelled, cancelCall{id: id, trigger: trigger})
	return &domain.RefundResult{
		RentalID: id,
		State:    domain.RentalStateCancelled,
		Amount:   decimal.RequireFromString("0.26"),
		Currency: domain.CurrencyPrimary,
	}, nil
}

func waitingRental(id string) *domain.Rental {
	return &domain.Rental{
		ID:        id,
		IssuerID:  "issuer-" + id,
		State:     domain.RentalStateWaiting,
		CreatedAt: pollNow.Add(-time.Minute),
		UpdatedAt: pollNow.Add(-time.Minute),
		ExpiresAt: pollNow.Add(10 * time.Minute),
	}
}

func newTestPoller(rentals Rentals, issuer usecase.NumberIssuer) (*Poller, *metrics.Metrics) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	p := New(Config{
		Rentals: rentals,
		Issuer:  issuer,
		Metrics: m,
		Logger:  zerolog.Nop(),
		Clock:   func() time.Time { return pollNow },
	})
	return p, m
}

func TestPollAppliesDeliveredCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	issuer := mocks.NewMockNumberIssuer(ctrl)
	issuer.EXPECT().CheckDelivery(gomock.Any(), "issuer-r1").
		Return(&domain.Delivery{State: domain.DeliveryDelivered, Code: "482913"}, nil)

	rentals := &stubRentals{pollable: []*domain.Rental{waitingRental("r1")}}
	p, m := newTestPoller(rentals, issuer)

	if err := p.poll(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if len(rentals.applied) != 1 {
		t.Fatalf("expected one status update, got %d", len(rentals.applied))
	}
	got := rentals.applied[0]
	if got.id != "r1" || got.state != domain.RentalStateCompleted || got.code != "482913" {
		t.Fatalf("unexpected status update %+v", got)
	}
	if v := testutil.ToFloat64(m.PollerChecks.WithLabelValues("delivered")); v != 1 {
		t.Fatalf("expected one delivered check, got %v", v)
	}
}

func TestPollMarksUnknownRentalsAsError(t *testing.T) {
	ctrl := gomock.NewController(t)
	issuer := mocks.NewMockNumberIssuer(ctrl)
	issuer.EXPECT().CheckDelivery(gomock.Any(), "issuer-r1").
		Return(&domain.Delivery{State: domain.DeliveryNotFound}, nil)

	rentals := &stubRentals{pollable: []*domain.Rental{waitingRental("r1")}}
	p, _ := newTestPoller(rentals, issuer)

	if err := p.poll(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if len(rentals.applied) != 1 || rentals.applied[0].state != domain.RentalStateError {
		t.Fatalf("expected error transition, got %+v", rentals.applied)
	}
}

func TestPollLeavesPendingRentalsAlone(t *testing.T) {
	ctrl := gomock.NewController(t)
	issuer := mocks.NewMockNumberIssuer(ctrl)
	issuer.EXPECT().CheckDelivery(gomock.Any(), "issuer-r1").
		Return(&domain.Delivery{State: domain.DeliveryWaiting}, nil)

	rentals := &stubRentals{pollable: []*domain.Rental{waitingRental("r1")}}
	p, _ := newTestPoller(rentals, issuer)

	if err := p.poll(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if len(rentals.applied) != 0 || len(rentals.cancelled) != 0 {
		t.Fatalf("expected no changes, got applied=%+v cancelled=%+v", rentals.applied, rentals.cancelled)
	}
}

func TestPollCancelsExpiredRentalsWithoutAskingIssuer(t *testing.T) {
	ctrl := gomock.NewController(t)
	issuer := mocks.NewMockNumberIssuer(ctrl)

	expired := waitingRental("r1")
	expired.ExpiresAt = pollNow.Add(-time.Second)

	rentals := &stubRentals{pollable: []*domain.Rental{expired}}
	p, _ := newTestPoller(rentals, issuer)

	if err := p.poll(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if len(rentals.cancelled) != 1 || rentals.cancelled[0].trigger != usecase.CancelTriggerExpired {
		t.Fatalf("expected expiry cancellation, got %+v", rentals.cancelled)
	}
}

func TestPollRefundsRentalsCancelledByIssuer(t *testing.T) {
	ctrl := gomock.NewController(t)
	issuer := mocks.NewMockNumberIssuer(ctrl)
	issuer.EXPECT().CheckDelivery(gomock.Any(), "issuer-r1").
		Return(&domain.Delivery{State: domain.DeliveryCancelled}, nil)

	rentals := &stubRentals{pollable: []*domain.Rental{waitingRental("r1")}}
	p, _ := newTestPoller(rentals, issuer)

	if err := p.poll(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if len(rentals.cancelled) != 1 || rentals.cancelled[0].trigger != usecase.CancelTriggerIssuer {
		t.Fatalf("expected issuer cancellation, got %+v", rentals.cancelled)
	}
}

func TestPollResumesStuckCancellations(t *testing.T) {
	ctrl := gomock.NewController(t)
	issuer := mocks.NewMockNumberIssuer(ctrl)

	stuck := waitingRental("stuck")
	stuck.State = domain.RentalStateCancelling
	stuck.UpdatedAt = pollNow.Add(-5 * time.Minute)

	fresh := waitingRental("fresh")
	fresh.State = domain.RentalStateCancelling
	fresh.UpdatedAt = pollNow.Add(-time.Second)

	rentals := &stubRentals{pollable: []*domain.Rental{stuck, fresh}}
	p, _ := newTestPoller(rentals, issuer)

	if err := p.poll(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if len(rentals.cancelled) != 1 {
		t.Fatalf("expected only the stuck rental to be resumed, got %+v", rentals.cancelled)
	}
	if got := rentals.cancelled[0]; got.id != "stuck" || got.trigger != usecase.CancelTriggerResume {
		t.Fatalf("unexpected cancel call %+v", got)
	}
}

func TestPollContinuesAfterPerRentalFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	issuer := mocks.NewMockNumberIssuer(ctrl)
	issuer.EXPECT().CheckDelivery(gomock.Any(), "issuer-r1").
		Return(nil, domain.ErrIssuerUnavailable)
	issuer.EXPECT().CheckDelivery(gomock.Any(), "issuer-r2").
		Return(&domain.Delivery{State: domain.DeliveryDelivered, Code: "1111"}, nil)
	issuer.EXPECT().CheckDelivery(gomock.Any(), "issuer-r3").
		Return(&domain.Delivery{State: domain.DeliveryDelivered, Code: "2222"}, nil)

	rentals := &stubRentals{
		pollable:  []*domain.Rental{waitingRental("r1"), waitingRental("r2"), waitingRental("r3")},
		applyErrs: map[string]error{"r2": errors.New("db down")},
	}
	p, m := newTestPoller(rentals, issuer)

	if err := p.poll(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if len(rentals.applied) != 1 || rentals.applied[0].id != "r3" {
		t.Fatalf("expected r3 to be applied, got %+v", rentals.applied)
	}
	if v := testutil.ToFloat64(m.PollerErrors.WithLabelValues("check")); v != 1 {
		t.Fatalf("expected one check error, got %v", v)
	}
	if v := testutil.ToFloat64(m.PollerErrors.WithLabelValues("apply")); v != 1 {
		t.Fatalf("expected one apply error, got %v", v)
	}
}

func TestPollReachesWaitingRentalsBehindStuckCancellations(t *testing.T) {
	ctrl := gomock.NewController(t)
	issuer := mocks.NewMockNumberIssuer(ctrl)
	issuer.EXPECT().CheckDelivery(gomock.Any(), "issuer-waiting").
		Return(&domain.Delivery{State: domain.DeliveryDelivered, Code: "5555"}, nil)

	var stuck []*domain.Rental
	cancelErr := make(map[string]error)
	for _, id := range []string{"stuck-1", "stuck-2", "stuck-3"} {
		r := waitingRental(id)
		r.State = domain.RentalStateCancelling
		r.UpdatedAt = pollNow.Add(-time.Hour)
		stuck = append(stuck, r)
		cancelErr[id] = domain.ErrRefundIncomplete
	}

	rentals := &stubRentals{
		pollable:  append(stuck, waitingRental("waiting")),
		cancelErr: cancelErr,
	}
	p, _ := newTestPoller(rentals, issuer)
	p.batchSize = 2

	for i := 0; i < 2; i++ {
		if err := p.poll(context.Background()); err != nil {
			t.Fatalf("poll %d failed: %v", i, err)
		}
	}

	if len(rentals.applied) != 1 || rentals.applied[0].id != "waiting" {
		t.Fatalf("expected the waiting rental to be reached, got %+v", rentals.applied)
	}
}

func TestPollReturnsListError(t *testing.T) {
	listErr := errors.New("list failed")
	p, _ := newTestPoller(&stubRentals{listErr: listErr}, nil)

	if err := p.poll(context.Background()); !errors.Is(err, listErr) {
		t.Fatalf("expected list error, got %v", err)
	}
}

func TestPollStopsBetweenRentalsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	issuer := mocks.NewMockNumberIssuer(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	issuer.EXPECT().CheckDelivery(gomock.Any(), "issuer-r1").
		DoAndReturn(func(context.Context, string) (*domain.Delivery, error) {
			cancel()
			return &domain.Delivery{State: domain.DeliveryWaiting}, nil
		})

	rentals := &stubRentals{pollable: []*domain.Rental{waitingRental("r1"), waitingRental("r2")}}
	p, _ := newTestPoller(rentals, issuer)
	p.requestDelay = time.Hour

	done := make(chan error, 1)
	go func() { done <- p.poll(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("poll failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("poll did not stop after cancel")
	}
}

func TestStartStopsOnContextCancellation(t *testing.T) {
	p, m := newTestPoller(&stubRentals{}, nil)
	p.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Start(ctx)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	if v := testutil.ToFloat64(m.PollerCycles); v < 2 {
		t.Fatalf("expected the immediate cycle plus ticks, got %v", v)
	}
}
