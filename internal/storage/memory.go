package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryIndex keeps reports in process memory. Used by the CLI and tests.
type MemoryIndex struct {
	mu      sync.RWMutex
	reports map[string]Report
	alerts  map[string][]Alert
	nextID  int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		reports: make(map[string]Report),
		alerts:  make(map[string][]Alert),
	}
}

func (m *MemoryIndex) SaveReport(_ context.Context, rep Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep.Months = append([]Month(nil), rep.Months...)
	sort.Slice(rep.Months, func(i, j int) bool { return rep.Months[i].Month < rep.Months[j].Month })
	m.reports[rep.ID] = rep
	return nil
}

func (m *MemoryIndex) GetReport(_ context.Context, id string) (Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rep, ok := m.reports[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	rep.Months = append([]Month(nil), rep.Months...)
	return rep, nil
}

func (m *MemoryIndex) ListReports(_ context.Context, limit int) ([]Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Report, 0, len(m.reports))
	for _, rep := range m.reports {
		rep.Months = nil
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryIndex) ListMonths(_ context.Context, reportID string) ([]Month, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Month(nil), m.reports[reportID].Months...), nil
}

func (m *MemoryIndex) RecordAlert(_ context.Context, a Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	list := m.alerts[a.ReportID]
	for i, existing := range list {
		if existing.Month == a.Month && existing.Side == a.Side {
			a.ID = existing.ID
			list[i] = a
			return nil
		}
	}
	m.nextID++
	a.ID = m.nextID
	m.alerts[a.ReportID] = append(list, a)
	return nil
}

func (m *MemoryIndex) ListAlerts(_ context.Context, reportID string) ([]Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]Alert(nil), m.alerts[reportID]...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Side < out[j].Side
	})
	return out, nil
}

func (m *MemoryIndex) DeleteReportsBefore(_ context.Context, t time.Time) ([]Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []Report
	for id, rep := range m.reports {
		if rep.CreatedAt.Before(t) {
			rep.Months = nil
			expired = append(expired, rep)
			delete(m.reports, id)
			delete(m.alerts, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].CreatedAt.Before(expired[j].CreatedAt) })
	return expired, nil
}

func (m *MemoryIndex) Ping(context.Context) error { return nil }

func (m *MemoryIndex) Close() error { return nil }
