package mysql

import (
    "context"
    "database/sql"
    "errors"
    "time"

    domain "github.com/bryanwahyu/automaton-sapaudit/internal/domain/report"
)

type ReportRepository struct {
    db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
    return &ReportRepository{db: db}
}

// Put inserts a report payload; existing ids are never overwritten
func (r *ReportRepository) Put(ctx context.Context, kind domain.Kind, id string, payload []byte) error {
    const q = `
INSERT INTO analysis_reports (kind, id, payload_json, created_at)
VALUES (?,?,?,?);
`
    _, err := r.db.ExecContext(ctx, q, string(kind), id, jsonOrEmpty(string(payload)), time.Now().UTC())
    if isDuplicate(err) {
        return domain.ErrAlreadyExists
    }
    return err
}

func (r *ReportRepository) Get(ctx context.Context, kind domain.Kind, id string) ([]byte, error) {
    const q = `SELECT payload_json FROM analysis_reports WHERE kind=? AND id=?;`
    var payload string
    err := r.db.QueryRowContext(ctx, q, string(kind), id).Scan(&payload)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, domain.ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return []byte(payload), nil
}

// Check pings the database, used by the readiness endpoint
func (r *ReportRepository) Check(ctx context.Context) error {
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    return r.db.PingContext(ctx)
}
