package mysql

import (
    "context"
    "database/sql"
    "strings"
    "time"

    domain "github.com/bryanwahyu/automaton-sapaudit/internal/domain/failures"
)

type FailureRepository struct {
    db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
    const q = `
INSERT INTO analysis_failures
  (analysis, phase, message, details_json, created_at)
VALUES (?,?,?,?,?)
`
    msg := f.Message
    if strings.TrimSpace(msg) == "" {
        msg = "-"
    }
    created := f.CreatedAt
    if created.IsZero() {
        created = time.Now()
    }
    res, err := r.db.ExecContext(ctx, q, stringOrDash(f.Analysis), stringOrDash(f.Phase), msg, jsonOrEmpty(f.DetailsJSON), created)
    if err != nil {
        return err
    }
    if id, err := res.LastInsertId(); err == nil {
        f.ID = id
    }
    return nil
}

func (r *FailureRepository) Latest(ctx context.Context, limit int) ([]*domain.Failure, error) {
    if limit <= 0 { limit = 20 }
    const q = `
SELECT id, analysis, phase, message, details_json, created_at
FROM analysis_failures
ORDER BY created_at DESC, id DESC
LIMIT ?;`
    rows, err := r.db.QueryContext(ctx, q, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*domain.Failure
    for rows.Next() {
        var f domain.Failure
        if err := rows.Scan(&f.ID, &f.Analysis, &f.Phase, &f.Message, &f.DetailsJSON, &f.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, &f)
    }
    return out, rows.Err()
}
