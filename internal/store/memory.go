package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"MarketGauge/internal/model"
)

// MemoryStore keeps everything in process memory. It is used when no
// database path is configured and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	daily     map[string]model.DailyBar
	snapshots map[string]model.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		daily:     make(map[string]model.DailyBar),
		snapshots: make(map[string]model.Snapshot),
	}
}

func (m *MemoryStore) GetDaily(_ context.Context, day time.Time) (*model.DailyBar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bar, ok := m.daily[model.DateKey(day)]
	if !ok {
		return nil, ErrNotFound
	}
	return &bar, nil
}

func (m *MemoryStore) PutDaily(_ context.Context, bar *model.DailyBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := *bar
	b.Time = model.Day(b.Time)
	m.daily[model.DateKey(b.Time)] = b
	return nil
}

func (m *MemoryStore) ListDaily(_ context.Context, from, to time.Time) ([]model.DailyBar, error) {
	lo, hi := model.DateKey(from), model.DateKey(to)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.DailyBar
	for key, bar := range m.daily {
		if key >= lo && key <= hi {
			out = append(out, bar)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (m *MemoryStore) GetSnapshot(_ context.Context, day time.Time) (*model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[model.DateKey(day)]
	if !ok {
		return nil, ErrNotFound
	}
	return &snap, nil
}

func (m *MemoryStore) PutSnapshot(_ context.Context, snap *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.DateStr()] = *snap
	return nil
}

func (m *MemoryStore) Close() error { return nil }
