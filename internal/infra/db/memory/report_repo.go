// Package memory keeps reports, narratives and failures in process memory.
// It backs tests and single-instance deployments without a database.
package memory

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/automaton-sapaudit/internal/domain/report"
)

// ReportRepository is a thread-safe write-once map of report payloads.
type ReportRepository struct {
	mu   sync.RWMutex
	data map[domain.Kind]map[string][]byte
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{data: make(map[domain.Kind]map[string][]byte)}
}

func (r *ReportRepository) Put(ctx context.Context, kind domain.Kind, id string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.data[kind]
	if bucket == nil {
		bucket = make(map[string][]byte)
		r.data[kind] = bucket
	}
	if _, exists := bucket[id]; exists {
		return domain.ErrAlreadyExists
	}
	// simpan salinan supaya caller tidak bisa mengubah isi report
	bucket[id] = append([]byte(nil), payload...)
	return nil
}

func (r *ReportRepository) Get(ctx context.Context, kind domain.Kind, id string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payload, ok := r.data[kind][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), payload...), nil
}

// Check satisfies the health checker contract; memory is always available.
func (r *ReportRepository) Check(ctx context.Context) error { return nil }
