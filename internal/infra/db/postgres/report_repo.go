package postgres

import (
    "context"
    "database/sql"
    "errors"
    "time"

    domain "github.com/bryanwahyu/automaton-sapaudit/internal/domain/report"
)

type ReportRepository struct { db *sql.DB }

func NewReportRepository(db *sql.DB) *ReportRepository { return &ReportRepository{db: db} }

// Put insert-only; an existing (kind,id) returns ErrAlreadyExists
func (r *ReportRepository) Put(ctx context.Context, kind domain.Kind, id string, payload []byte) error {
    const q = `
INSERT INTO analysis_reports (kind, id, payload_json, created_at)
VALUES ($1,$2,$3::jsonb,$4);`
    _, err := r.db.ExecContext(ctx, q, string(kind), id, string(payload), time.Now().UTC())
    if isUniqueViolation(err) {
        return domain.ErrAlreadyExists
    }
    return err
}

func (r *ReportRepository) Get(ctx context.Context, kind domain.Kind, id string) ([]byte, error) {
    const q = `SELECT payload_json::text FROM analysis_reports WHERE kind=$1 AND id=$2;`
    var payload string
    if err := r.db.QueryRowContext(ctx, q, string(kind), id).Scan(&payload); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, domain.ErrNotFound
        }
        return nil, err
    }
    return []byte(payload), nil
}

func (r *ReportRepository) Check(ctx context.Context) error {
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    return r.db.PingContext(ctx)
}
