package collector

import (
	"context"
	"sync"
	"time"

	"MarketGauge/internal/model"
)

// MockFetcher serves fixed bars and counts calls, for development and tests.
type MockFetcher struct {
	ID   string
	Bars map[string]model.DailyBar
	// Err, when set, is returned for every date without a bar.
	Err error

	mu    sync.Mutex
	calls int
}

// NewMockFetcher returns a fetcher serving bars keyed by their date.
func NewMockFetcher(id string, bars ...model.DailyBar) *MockFetcher {
	m := &MockFetcher{ID: id, Bars: make(map[string]model.DailyBar)}
	for _, b := range bars {
		m.Bars[model.DateKey(b.Time)] = b
	}
	return m
}

func (m *MockFetcher) Name() string { return m.ID }

func (m *MockFetcher) FetchDay(_ context.Context, day time.Time) (*model.DailyBar, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if b, ok := m.Bars[model.DateKey(day)]; ok {
		if b.Source == "" {
			b.Source = m.ID
		}
		b.FetchedAt = time.Now().UTC()
		return &b, nil
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, ErrNoData
}

// Calls returns how many times FetchDay ran.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
