package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/bryanwahyu/automaton-sapaudit/internal/domain/failures"
)

type FailureRepository struct {
	mu     sync.Mutex
	nextID int64
	data   []*domain.Failure
}

func NewFailureRepository() *FailureRepository { return &FailureRepository{} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	cp := *f
	cp.ID = r.nextID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.data = append(r.data, &cp)
	return nil
}

// Latest returns the newest failures first
func (r *FailureRepository) Latest(ctx context.Context, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Failure, 0, limit)
	for i := len(r.data) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.data[i])
	}
	return out, nil
}
