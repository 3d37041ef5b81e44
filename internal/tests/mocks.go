package tests

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"realty/internal/domain"
	"realty/internal/events"
	"realty/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
// Records are cloned on the way in and out, so callers never share state
// with the store.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Counters
	CreateCallCount  int32
	GetByIDCallCount int32
	UpdateCallCount  int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

// AddPayment adds a payment to the mock repository.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment.Clone()
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment.Clone()
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	atomic.AddInt32(&m.GetByIDCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return payment.Clone(), nil
}

func (m *MockPaymentRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Payment, 0)
	for _, p := range m.payments {
		if p.UserID == userID {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[payment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != payment.Version {
		return repository.ErrVersionConflict
	}
	payment.Version++
	m.payments[payment.ID] = payment.Clone()
	return nil
}

// GetPayment returns the stored payment for assertions.
func (m *MockPaymentRepository) GetPayment(id string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil
	}
	return p.Clone()
}

// CountPayments returns the number of payments.
func (m *MockPaymentRepository) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// ──────────────────────────────────────────────
// MOCK RATE PROVIDER
// ──────────────────────────────────────────────

// MockRateProvider returns a fixed rate for every pair, or an injected error.
type MockRateProvider struct {
	mu   sync.Mutex
	rate float64

	// Counters
	GetRateCallCount int32

	// Error injection
	Err error
}

// NewMockRateProvider creates a rate provider that always answers rate.
func NewMockRateProvider(rate float64) *MockRateProvider {
	return &MockRateProvider{rate: rate}
}

// SetRate changes the rate returned by later calls.
func (m *MockRateProvider) SetRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

func (m *MockRateProvider) GetRate(ctx context.Context, from, to string) (float64, error) {
	atomic.AddInt32(&m.GetRateCallCount, 1)
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate, nil
}

// ──────────────────────────────────────────────
// MOCK RATE SOURCE
// ──────────────────────────────────────────────

// MockRateSource is an upstream that counts fetches.
type MockRateSource struct {
	mu    sync.Mutex
	base  string
	rates map[string]float64

	// Counters
	FetchCallCount int32

	// Error injection
	Err error
}

// NewMockRateSource creates a source serving the given table.
func NewMockRateSource(base string, rates map[string]float64) *MockRateSource {
	return &MockRateSource{base: base, rates: rates}
}

func (m *MockRateSource) FetchRates(ctx context.Context) (*domain.RateTable, error) {
	atomic.AddInt32(&m.FetchCallCount, 1)
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rates := make(map[string]float64, len(m.rates))
	for k, v := range m.rates {
		rates[k] = v
	}
	return &domain.RateTable{Base: m.base, Rates: rates}, nil
}

func (m *MockRateSource) Name() string {
	return "mock"
}

// Fetches returns the number of upstream fetches so far.
func (m *MockRateSource) Fetches() int {
	return int(atomic.LoadInt32(&m.FetchCallCount))
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]mockLock
	seq   int

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

type mockLock struct {
	token  string
	expiry time.Time
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]mockLock),
	}
}

func (m *MockLockStore) AcquirePaymentLock(ctx context.Context, paymentID string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return "", false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:payment:" + paymentID
	if held, exists := m.locks[key]; exists {
		if time.Now().Before(held.expiry) {
			return "", false, nil // Lock still held.
		}
	}

	m.seq++
	token := fmt.Sprintf("token-%d", m.seq)
	m.locks[key] = mockLock{token: token, expiry: time.Now().Add(ttl)}
	return token, true, nil
}

func (m *MockLockStore) ReleasePaymentLock(ctx context.Context, paymentID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "lock:payment:" + paymentID
	if held, ok := m.locks[key]; ok && held.token == token {
		delete(m.locks, key)
	}
	return nil
}

// IsLocked checks if a payment is locked (for test assertions).
func (m *MockLockStore) IsLocked(paymentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, exists := m.locks["lock:payment:"+paymentID]
	return exists && time.Now().Before(held.expiry)
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published payment events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.PaymentEvent

	// Error injection
	Err error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishPayment(ctx context.Context, event events.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (m *MockPublisher) Events() []events.PaymentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.PaymentEvent, len(m.events))
	copy(out, m.events)
	return out
}

// ──────────────────────────────────────────────
// FAKE CLOCK
// ──────────────────────────────────────────────

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock frozen at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
