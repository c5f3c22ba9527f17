package sink

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/opportunity-research/internal/model"
)

// SQLite appends entries to a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS lookup_log (
	id            TEXT PRIMARY KEY,
	created_at    DATETIME NOT NULL,
	name          TEXT NOT NULL,
	title         TEXT NOT NULL,
	company       TEXT NOT NULL,
	research      TEXT NOT NULL,
	opportunities TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lookup_log_created_at ON lookup_log(created_at);
CREATE INDEX IF NOT EXISTS idx_lookup_log_company ON lookup_log(company);
`

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Append(ctx context.Context, e model.LogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lookup_log (id, created_at, name, title, company, research, opportunities)
		 VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		e.ID, e.Timestamp, e.Name, e.Title, e.Company, e.ResearchText, e.OpportunitiesText,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert lookup %s", e.ID)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, name, title, company, research, opportunities
		 FROM lookup_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query recent lookups")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Name, &e.Title, &e.Company, &e.ResearchText, &e.OpportunitiesText); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lookup")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate lookups")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
