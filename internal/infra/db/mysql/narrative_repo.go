package mysql

import (
    "context"
    "database/sql"
    "errors"
    "time"

    domain "github.com/bryanwahyu/automaton-sapaudit/internal/domain/narrative"
)

type NarrativeRepository struct {
    db *sql.DB
}

func NewNarrativeRepository(db *sql.DB) *NarrativeRepository {
    return &NarrativeRepository{db: db}
}

// Save inserts a narrative record
func (r *NarrativeRepository) Save(ctx context.Context, n *domain.Narrative) error {
    const q = `
INSERT INTO analysis_narratives
  (id, report_id, provider, content_json, created_at)
VALUES (?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  provider=VALUES(provider), content_json=VALUES(content_json);
`
    createdAt := n.CreatedAt
    if createdAt.IsZero() {
        createdAt = time.Now()
    }
    _, err := r.db.ExecContext(ctx, q, string(n.ID), n.ReportID, stringOrDash(n.Provider), jsonOrEmpty(n.Content), createdAt)
    return err
}

// Paginate returns a page of narratives ordered by created_at desc
func (r *NarrativeRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Narrative, error) {
    if page <= 0 {
        page = 1
    }
    if pageSize <= 0 {
        pageSize = 20
    }
    offset := (page - 1) * pageSize

    const q = `
SELECT id, report_id, provider, content_json, created_at
FROM analysis_narratives
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
    rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []*domain.Narrative
    for rows.Next() {
        var n domain.Narrative
        if err := rows.Scan(&n.ID, &n.ReportID, &n.Provider, &n.Content, &n.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, &n)
    }
    return out, rows.Err()
}

// LatestByReport returns the latest narrative for a report, nil when none
func (r *NarrativeRepository) LatestByReport(ctx context.Context, reportID string) (*domain.Narrative, error) {
    const q = `
SELECT id, report_id, provider, content_json, created_at
FROM analysis_narratives
WHERE report_id=?
ORDER BY created_at DESC, id DESC
LIMIT 1;
`
    var n domain.Narrative
    err := r.db.QueryRowContext(ctx, q, reportID).Scan(&n.ID, &n.ReportID, &n.Provider, &n.Content, &n.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &n, nil
}
