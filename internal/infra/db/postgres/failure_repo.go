package postgres

import (
    "context"
    "database/sql"
    "encoding/json"
    "strings"
    "time"

    domain "github.com/bryanwahyu/automaton-sapaudit/internal/domain/failures"
)

type FailureRepository struct { db *sql.DB }

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
    const q = `
INSERT INTO analysis_failures (analysis, phase, message, details_json, created_at)
VALUES ($1,$2,$3,$4::jsonb,$5)
RETURNING id;`
    details := strings.TrimSpace(f.DetailsJSON)
    if details == "" || !json.Valid([]byte(details)) {
        // simpan teks mentah sebagai {"raw": ...}
        if details == "" {
            details = "{}"
        } else {
            b, _ := json.Marshal(map[string]string{"raw": details})
            details = string(b)
        }
    }
    created := f.CreatedAt
    if created.IsZero() {
        created = time.Now()
    }
    return r.db.QueryRowContext(ctx, q,
        stringOrDash(f.Analysis), stringOrDash(f.Phase), stringOrDash(f.Message), details, created,
    ).Scan(&f.ID)
}

func (r *FailureRepository) Latest(ctx context.Context, limit int) ([]*domain.Failure, error) {
    if limit <= 0 { limit = 20 }
    const q = `
SELECT id, analysis, phase, message, details_json::text, created_at
FROM analysis_failures
ORDER BY created_at DESC, id DESC
LIMIT $1;`
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
