package archive

import (
	"context"
	"sort"
	"sync"
)

// memrepo keeps archived sessions in process memory. Used when no DATABASE_URL is set.
type memrepo struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewMemoryRepository() Repository {
	return &memrepo{records: make(map[string]*Record)}
}

func (m *memrepo) Save(_ context.Context, rec *Record) error {
	if rec == nil {
		return nil
	}
	cp := cloneRecord(rec)
	m.mu.Lock()
	m.records[rec.SessionID] = cp
	m.mu.Unlock()
	return nil
}

func (m *memrepo) Get(_ context.Context, sessionID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *memrepo) Recent(_ context.Context, limit int) ([]*Record, error) {
	m.mu.RLock()
	items := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		items = append(items, cloneRecord(r))
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].SessionID > items[j].SessionID
	})
	if limit = clampLimit(limit); len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func cloneRecord(r *Record) *Record {
	cp := *r
	if r.Settings != nil {
		s := *r.Settings
		s.Weights = append([]float64(nil), r.Settings.Weights...)
		cp.Settings = &s
	}
	cp.Players = make([]PlayerResult, len(r.Players))
	for i, p := range r.Players {
		if p.Average != nil {
			v := *p.Average
			p.Average = &v
		}
		cp.Players[i] = p
	}
	return &cp
}
