package postgres

import (
    "context"
    "database/sql"
    "errors"
    "time"

    domain "github.com/bryanwahyu/automaton-sapaudit/internal/domain/narrative"
)

type NarrativeRepository struct { db *sql.DB }

func NewNarrativeRepository(db *sql.DB) *NarrativeRepository { return &NarrativeRepository{db: db} }

func (r *NarrativeRepository) Save(ctx context.Context, n *domain.Narrative) error {
    const q = `
INSERT INTO analysis_narratives (id, report_id, provider, content_json, created_at)
VALUES ($1,$2,$3,$4::jsonb,$5)
ON CONFLICT (id) DO UPDATE SET
 provider = EXCLUDED.provider,
 content_json = EXCLUDED.content_json;`
    created := n.CreatedAt
    if created.IsZero() {
        created = time.Now()
    }
    content := n.Content
    if content == "" {
        content = "{}"
    }
    _, err := r.db.ExecContext(ctx, q, string(n.ID), n.ReportID, stringOrDash(n.Provider), content, created)
    return err
}

func (r *NarrativeRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Narrative, error) {
    if page <= 0 { page = 1 }
    if pageSize <= 0 { pageSize = 20 }
    const q = `
SELECT id, report_id, provider, content_json::text, created_at
FROM analysis_narratives
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;`
    rows, err := r.db.QueryContext(ctx, q, pageSize, (page-1)*pageSize)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*domain.Narrative
    for rows.Next() {
        var (
            n  domain.Narrative
            id string
        )
        if err := rows.Scan(&id, &n.ReportID, &n.Provider, &n.Content, &n.CreatedAt); err != nil {
            return nil, err
        }
        n.ID = domain.NarrativeID(id)
        out = append(out, &n)
    }
    return out, rows.Err()
}

func (r *NarrativeRepository) LatestByReport(ctx context.Context, reportID string) (*domain.Narrative, error) {
    const q = `
SELECT id, report_id, provider, content_json::text, created_at
FROM analysis_narratives
WHERE report_id=$1
ORDER BY created_at DESC, id DESC
LIMIT 1;`
    var (
        n  domain.Narrative
        id string
    )
    err := r.db.QueryRowContext(ctx, q, reportID).Scan(&id, &n.ReportID, &n.Provider, &n.Content, &n.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    n.ID = domain.NarrativeID(id)
    return &n, nil
}
