package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/efb/signals/signals-backend/internal/websocket"
)

// MockFetcher is a mock implementation of domain.Fetcher keyed by URL
type MockFetcher struct {
	Responses map[string][]byte
	Errors    map[string]error
	FetchFn   func(ctx context.Context, req domain.FetchRequest) ([]byte, error)
	Requests  []domain.FetchRequest
	mu        sync.Mutex
}

// NewMockFetcher creates a new MockFetcher
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Responses: make(map[string][]byte),
		Errors:    make(map[string]error),
	}
}

// Fetch returns the configured response or error for the request URL
func (m *MockFetcher) Fetch(ctx context.Context, req domain.FetchRequest) ([]byte, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fn := m.FetchFn
	body, hasBody := m.Responses[req.URL]
	err, hasErr := m.Errors[req.URL]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if hasErr {
		return nil, err
	}
	if hasBody {
		return body, nil
	}
	return nil, &domain.FetchFailure{Status: 404, Message: fmt.Sprintf("no mock response for %s", req.URL)}
}

// SetResponse registers a body for a URL (helper for tests)
func (m *MockFetcher) SetResponse(url string, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[url] = []byte(body)
}

// SetError registers an error for a URL (helper for tests)
func (m *MockFetcher) SetError(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[url] = err
}

// RequestCount returns the number of requests made so far
func (m *MockFetcher) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request
func (m *MockFetcher) LastRequest() domain.FetchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return domain.FetchRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// MockSeriesCache is an in-memory implementation of domain.SeriesCache
type MockSeriesCache struct {
	Entries map[string]*domain.Envelope
	TTLs    map[string]time.Duration
	GetErr  error
	SetErr  error
	mu      sync.Mutex
}

// NewMockSeriesCache creates a new MockSeriesCache
func NewMockSeriesCache() *MockSeriesCache {
	return &MockSeriesCache{
		Entries: make(map[string]*domain.Envelope),
		TTLs:    make(map[string]time.Duration),
	}
}

// Get returns a cached envelope, or nil on a miss
func (m *MockSeriesCache) Get(ctx context.Context, key string) (*domain.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Entries[key], nil
}

// Set stores an envelope
func (m *MockSeriesCache) Set(ctx context.Context, key string, envelope *domain.Envelope, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Entries[key] = envelope
	m.TTLs[key] = ttl
	return nil
}

// Len returns the number of cached entries
func (m *MockSeriesCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries)
}

// MockDonationLedger is a mock implementation of domain.DonationLedger
type MockDonationLedger struct {
	Rows      []domain.DonationRow
	Err       error
	LastQuery domain.DonationQuery
	Calls     int
	mu        sync.Mutex
}

// NewMockDonationLedger creates a new MockDonationLedger
func NewMockDonationLedger(rows ...domain.DonationRow) *MockDonationLedger {
	return &MockDonationLedger{Rows: rows}
}

// FetchRows returns the configured rows or error
func (m *MockDonationLedger) FetchRows(ctx context.Context, q domain.DonationQuery) ([]domain.DonationRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastQuery = q
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Rows, nil
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	Events []websocket.Event
	mu     sync.Mutex
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// Publish records the event
func (m *MockEventPublisher) Publish(event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// Types returns the types of the recorded events in publish order
func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}

// Len returns the number of recorded events
func (m *MockEventPublisher) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}
