package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables used by the repositories when missing
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_reports (
  kind VARCHAR(32) NOT NULL,
  id VARCHAR(64) NOT NULL,
  payload_json LONGTEXT NOT NULL,
  created_at DATETIME NOT NULL,
  PRIMARY KEY (kind, id)
)`,
		`CREATE TABLE IF NOT EXISTS analysis_narratives (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  report_id VARCHAR(64) NOT NULL,
  provider VARCHAR(32) NOT NULL,
  content_json LONGTEXT NOT NULL,
  created_at DATETIME NOT NULL,
  INDEX idx_narratives_report (report_id, created_at)
)`,
		`CREATE TABLE IF NOT EXISTS analysis_failures (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  analysis VARCHAR(32) NOT NULL,
  phase VARCHAR(32) NOT NULL,
  message TEXT NOT NULL,
  details_json LONGTEXT NOT NULL,
  created_at DATETIME NOT NULL
)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
