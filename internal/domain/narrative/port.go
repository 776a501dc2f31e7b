package narrative

import "context"

// Repository port for persisting and querying narratives
type Repository interface {
    Save(ctx context.Context, n *Narrative) error
    Paginate(ctx context.Context, page, pageSize int) ([]*Narrative, error)
    LatestByReport(ctx context.Context, reportID string) (*Narrative, error)
}
