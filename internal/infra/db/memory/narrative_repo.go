package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/bryanwahyu/automaton-sapaudit/internal/domain/narrative"
)

type NarrativeRepository struct {
	mu   sync.RWMutex
	data []*domain.Narrative
}

func NewNarrativeRepository() *NarrativeRepository { return &NarrativeRepository{} }

// Save inserts or replaces a narrative by id
func (r *NarrativeRepository) Save(ctx context.Context, n *domain.Narrative) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *n
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	for i, existing := range r.data {
		if existing.ID == cp.ID {
			r.data[i] = &cp
			return nil
		}
	}
	r.data = append(r.data, &cp)
	return nil
}

// Paginate returns narratives ordered by created_at desc
func (r *NarrativeRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Narrative, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	r.mu.RLock()
	sorted := append([]*domain.Narrative(nil), r.data...)
	r.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	start := (page - 1) * pageSize
	if start >= len(sorted) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[start:end], nil
}

// LatestByReport returns the newest narrative of a report, or nil when none exists
func (r *NarrativeRepository) LatestByReport(ctx context.Context, reportID string) (*domain.Narrative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Narrative
	for _, n := range r.data {
		if n.ReportID != reportID {
			continue
		}
		if latest == nil || !n.CreatedAt.Before(latest.CreatedAt) {
			latest = n
		}
	}
	return latest, nil
}
