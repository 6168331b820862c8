package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
// Debit and Credit are atomic under the mock's lock, like the SQL updates.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc  func(ctx context.Context, account *domain.Account) error
	GetByIDFunc func(ctx context.Context, id string) (*domain.Account, error)
	ListFunc    func(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	BlockFunc   func(ctx context.Context, id string, blocked bool, at time.Time) error
	DebitFunc   func(ctx context.Context, tx usecase.Transaction, id string, currency domain.Currency, amount decimal.Decimal, at time.Time) error
	CreditFunc  func(ctx context.Context, tx usecase.Transaction, id string, currency domain.Currency, amount decimal.Decimal, at time.Time) error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *account
	m.accounts[account.ID] = &stored
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		out := *acc
		return &out, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var accounts []*domain.Account
	for i := offset; i < len(ids) && len(accounts) < limit; i++ {
		out := *m.accounts[ids[i]]
		accounts = append(accounts, &out)
	}
	return accounts, nil
}

func (m *MockAccountRepository) SetBlocked(ctx context.Context, id string, blocked bool, at time.Time) error {
	if m.BlockFunc != nil {
		return m.BlockFunc(ctx, id, blocked, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.IsBlocked = blocked
	acc.UpdatedAt = at
	return nil
}

func (m *MockAccountRepository) Debit(ctx context.Context, tx usecase.Transaction, id string, currency domain.Currency, amount decimal.Decimal, at time.Time) error {
	if m.DebitFunc != nil {
		return m.DebitFunc(ctx, tx, id, currency, amount, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if acc.Balance(currency).LessThan(amount) {
		return domain.ErrInsufficientFunds
	}
	m.apply(acc, currency, amount.Neg(), at)
	return nil
}

func (m *MockAccountRepository) Credit(ctx context.Context, tx usecase.Transaction, id string, currency domain.Currency, amount decimal.Decimal, at time.Time) error {
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, tx, id, currency, amount, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	m.apply(acc, currency, amount, at)
	return nil
}

func (m *MockAccountRepository) apply(acc *domain.Account, currency domain.Currency, delta decimal.Decimal, at time.Time) {
	if currency == domain.CurrencySecondary {
		acc.SecondaryBalance = acc.SecondaryBalance.Add(delta)
	} else {
		acc.PrimaryBalance = acc.PrimaryBalance.Add(delta)
	}
	acc.UpdatedAt = at
}

// MockRentalRepository is a mock implementation of RentalRepository.
// UpdateState is a compare-and-set under the mock's lock. List methods
// order like the SQL: never attempted first, then least recently attempted.
type MockRentalRepository struct {
	mu       sync.RWMutex
	rentals  map[string]*domain.Rental
	attempts map[string]time.Time

	CreateFunc      func(ctx context.Context, rental *domain.Rental) error
	GetByIDFunc     func(ctx context.Context, id string) (*domain.Rental, error)
	UpdateStateFunc func(ctx context.Context, tx usecase.Transaction, rental *domain.Rental, from domain.RentalState) (bool, error)
	MarkPaidFunc    func(ctx context.Context, tx usecase.Transaction, id string, paidAt time.Time) error
}

func NewMockRentalRepository() *MockRentalRepository {
	return &MockRentalRepository{
		rentals:  make(map[string]*domain.Rental),
		attempts: make(map[string]time.Time),
	}
}

func (m *MockRentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, rental)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *rental
	m.rentals[rental.ID] = &stored
	return nil
}

func (m *MockRentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rentals[id]; ok {
		out := *r
		return &out, nil
	}
	return nil, domain.ErrRentalNotFound
}

func (m *MockRentalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Rental, error) {
	return m.GetByID(ctx, id)
}

func (m *MockRentalRepository) UpdateState(ctx context.Context, tx usecase.Transaction, rental *domain.Rental, from domain.RentalState) (bool, error) {
	if m.UpdateStateFunc != nil {
		return m.UpdateStateFunc(ctx, tx, rental, from)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rentals[rental.ID]
	if !ok {
		return false, domain.ErrRentalNotFound
	}
	if stored.State != from {
		return false, nil
	}
	stored.State = rental.State
	stored.Code = rental.Code
	stored.CompletedAt = rental.CompletedAt
	stored.CancelledAt = rental.CancelledAt
	stored.RefundAmount = rental.RefundAmount
	stored.UpdatedAt = rental.UpdatedAt
	return true, nil
}

func (m *MockRentalRepository) MarkPaid(ctx context.Context, tx usecase.Transaction, id string, paidAt time.Time) error {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, tx, id, paidAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rentals[id]
	if !ok {
		return domain.ErrRentalNotFound
	}
	stored.Paid = true
	stored.PaidAt = &paidAt
	return nil
}

func (m *MockRentalRepository) ListPollable(ctx context.Context, stuckBefore time.Time, limit int) ([]*domain.Rental, error) {
	return m.filter(limit, func(r *domain.Rental) bool {
		return r.State == domain.RentalStateWaiting ||
			(r.State == domain.RentalStateCancelling && r.UpdatedAt.Before(stuckBefore))
	}), nil
}

func (m *MockRentalRepository) TouchAttempt(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rentals[id]; !ok {
		return domain.ErrRentalNotFound
	}
	m.attempts[id] = at
	return nil
}

func (m *MockRentalRepository) ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.Rental, error) {
	return m.filter(0, func(r *domain.Rental) bool {
		return r.AccountID == accountID && !r.State.IsTerminal()
	}), nil
}

func (m *MockRentalRepository) ListUnpaid(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Rental, error) {
	return m.filter(limit, func(r *domain.Rental) bool {
		return !r.Paid &&
			r.CreatedAt.Before(olderThan) &&
			(r.State == domain.RentalStateWaiting || r.State == domain.RentalStateCompleted)
	}), nil
}

func (m *MockRentalRepository) filter(limit int, keep func(*domain.Rental) bool) []*domain.Rental {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Rental
	for _, r := range m.rentals {
		if keep(r) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ai, triedI := m.attempts[out[i].ID]
		aj, triedJ := m.attempts[out[j].ID]
		if triedI != triedJ {
			return !triedI
		}
		if triedI && !ai.Equal(aj) {
			return ai.Before(aj)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MockLedgerTransactionRepository is a mock implementation of
// LedgerTransactionRepository. It enforces one posting per rental and type.
type MockLedgerTransactionRepository struct {
	mu      sync.RWMutex
	entries []*domain.LedgerTransaction

	// Rentals, when set, lets SumUnsettledCharges see which rentals were paid.
	Rentals *MockRentalRepository

	CreateFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerTransaction) error
}

func NewMockLedgerTransactionRepository() *MockLedgerTransactionRepository {
	return &MockLedgerTransactionRepository{}
}

func (m *MockLedgerTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerTransaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.RentalID != nil {
		for _, e := range m.entries {
			if e.RentalID != nil && *e.RentalID == *entry.RentalID && e.Type == entry.Type {
				return domain.ErrDuplicateLedgerPosting
			}
		}
	}
	stored := *entry
	m.entries = append(m.entries, &stored)
	return nil
}

func (m *MockLedgerTransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerTransaction
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].AccountID == accountID {
			out = append(out, m.entries[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockLedgerTransactionRepository) ListByRental(ctx context.Context, rentalID string) ([]*domain.LedgerTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerTransaction
	for _, e := range m.entries {
		if e.RentalID != nil && *e.RentalID == rentalID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockLedgerTransactionRepository) SumByAccount(ctx context.Context, accountID string) (map[domain.Currency]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sums := make(map[domain.Currency]decimal.Decimal)
	for _, e := range m.entries {
		if e.AccountID == accountID {
			sums[e.Currency] = sums[e.Currency].Add(e.Amount)
		}
	}
	return sums, nil
}

func (m *MockLedgerTransactionRepository) SumUnsettledCharges(ctx context.Context, accountID string) (map[domain.Currency]decimal.Decimal, error) {
	sums := make(map[domain.Currency]decimal.Decimal)
	if m.Rentals == nil {
		return sums, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.AccountID != accountID || e.Type != domain.TransactionTypeRentalCharge || e.RentalID == nil {
			continue
		}
		r, err := m.Rentals.GetByID(ctx, *e.RentalID)
		if err != nil {
			return nil, err
		}
		if !r.Paid {
			sums[e.Currency] = sums[e.Currency].Add(e.Amount.Neg())
		}
	}
	return sums, nil
}

// Entries returns a copy of every recorded posting.
func (m *MockLedgerTransactionRepository) Entries() []*domain.LedgerTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.LedgerTransaction(nil), m.entries...)
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu   sync.RWMutex
	logs []*domain.AuditLog

	CreateFunc func(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Create(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, log)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AuditLog
	for _, l := range m.logs {
		if filter.ActorID != "" && l.ActorID != filter.ActorID {
			continue
		}
		if filter.OnBehalfOf != "" && l.OnBehalfOf != filter.OnBehalfOf {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// NewSerializedTransactionManager returns a manager whose transactions run
// one at a time, standing in for row locks in concurrency tests.
func NewSerializedTransactionManager() *MockTransactionManager {
	var mu sync.Mutex
	return &MockTransactionManager{
		BeginFunc: func(ctx context.Context) (usecase.Transaction, error) {
			mu.Lock()
			var once sync.Once
			release := func(context.Context) error {
				once.Do(mu.Unlock)
				return nil
			}
			return &MockTransaction{CommitFunc: release, RollbackFunc: release}, nil
		},
	}
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockRetrier runs the operation once.
type MockRetrier struct {
	Calls int
	mu    sync.Mutex
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	return operation()
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.Mutex
	data map[string][]byte

	ReserveFunc  func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error)
	CompleteFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	if m.ReserveFunc != nil {
		return m.ReserveFunc(ctx, key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.data[key]; ok {
		return false, stored, nil
	}
	m.data[key] = nil
	return true, nil, nil
}

func (m *MockIdempotencyStore) Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// MockPricingSettings is an in-memory PricingSettingsStore that also serves
// snapshots, so a test can read back what an admin wrote.
type MockPricingSettings struct {
	mu     sync.RWMutex
	config domain.PricingConfig

	WriteErr error
}

func NewMockPricingSettings(markup, rate decimal.Decimal) *MockPricingSettings {
	return &MockPricingSettings{config: domain.PricingConfig{
		MarkupPercentage: markup,
		ExchangeRate:     rate,
		Overrides:        domain.PriceOverrides{},
	}}
}

func (m *MockPricingSettings) Snapshot(ctx context.Context) (*domain.PricingConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.config
	cfg.Overrides = make(domain.PriceOverrides, len(m.config.Overrides))
	for k, v := range m.config.Overrides {
		cfg.Overrides[k] = v
	}
	return &cfg, nil
}

func (m *MockPricingSettings) SetMarkupPercentage(ctx context.Context, pct decimal.Decimal) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.MarkupPercentage = pct
	return nil
}

func (m *MockPricingSettings) SetExchangeRate(ctx context.Context, rate decimal.Decimal) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.ExchangeRate = rate
	return nil
}

func (m *MockPricingSettings) SetOverride(ctx context.Context, route, serviceCode string, price decimal.Decimal) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Overrides[domain.NewRouteService(route, serviceCode)] = price.StringFixed(2)
	return nil
}

func (m *MockPricingSettings) DeleteOverride(ctx context.Context, route, serviceCode string) (bool, error) {
	if m.WriteErr != nil {
		return false, m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := domain.NewRouteService(route, serviceCode)
	_, ok := m.config.Overrides[key]
	delete(m.config.Overrides, key)
	return ok, nil
}

// MockPricingCache counts invalidations.
type MockPricingCache struct {
	mu            sync.Mutex
	invalidations int

	Err error
}

func (m *MockPricingCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidations++
	return m.Err
}

func (m *MockPricingCache) Invalidations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invalidations
}
