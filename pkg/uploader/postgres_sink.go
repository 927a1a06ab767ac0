package uploader

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"tweetsync/pkg/checkpoint"
	"tweetsync/pkg/config"
	"tweetsync/pkg/models"
)

// execer is the slice of *sql.DB the sink needs
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresSink writes rows straight into a Postgres table keyed by the
// row's natural key. Rows already present are reported as skipped.
type PostgresSink struct {
	db     execer
	closer func() error
	insert string
}

// OpenPostgresSink connects with cfg.DSN and creates cfg.Table if missing
func OpenPostgresSink(ctx context.Context, cfg config.RemoteConfig) (*PostgresSink, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sink := newPostgresSink(db, cfg.Table)
	sink.closer = db.Close
	if err := sink.EnsureSchema(ctx, cfg.Table); err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

func newPostgresSink(db execer, table string) *PostgresSink {
	return &PostgresSink{
		db:     db,
		closer: func() error { return nil },
		insert: insertStatement(table),
	}
}

func createTableStatement(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	natural_key uuid PRIMARY KEY,
	"Timestamp" timestamptz NOT NULL,
	"Content" text NOT NULL,
	synced_at timestamptz NOT NULL DEFAULT now()
)`, pq.QuoteIdentifier(table))
}

func insertStatement(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (natural_key, "Timestamp", "Content") VALUES ($1, $2, $3) ON CONFLICT (natural_key) DO NOTHING`,
		pq.QuoteIdentifier(table))
}

// EnsureSchema creates the target table when it does not exist
func (s *PostgresSink) EnsureSchema(ctx context.Context, table string) error {
	if _, err := s.db.ExecContext(ctx, createTableStatement(table)); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (s *PostgresSink) Send(ctx context.Context, row models.Row) (models.UploadStatus, string) {
	key := checkpoint.NaturalKey(row.Timestamp, row.Content)

	res, err := s.db.ExecContext(ctx, s.insert, key, row.Timestamp.UTC(), row.Content)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return models.StatusRejected, fmt.Sprintf("%s: %s", pqErr.Code.Name(), pqErr.Message)
		}
		return models.StatusRejected, err.Error()
	}

	n, err := res.RowsAffected()
	if err != nil {
		return models.StatusRejected, fmt.Sprintf("rows affected: %v", err)
	}
	if n == 0 {
		return models.StatusSkipped, "already present in remote table"
	}
	return models.StatusInserted, ""
}

func (s *PostgresSink) Close() error {
	return s.closer()
}
