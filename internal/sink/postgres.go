package sink

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-research/internal/model"
)

// Pool is the subset of pgxpool.Pool used by Postgres.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Postgres appends entries to a PostgreSQL table.
type Postgres struct {
	pool Pool
}

// NewPostgres connects to connString and verifies the connection.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &Postgres{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS lookup_log (
	id            TEXT PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	name          TEXT NOT NULL,
	title         TEXT NOT NULL,
	company       TEXT NOT NULL,
	research      TEXT NOT NULL,
	opportunities TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lookup_log_created_at ON lookup_log(created_at DESC);
`

func (s *Postgres) Name() string { return "postgres" }

func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *Postgres) Append(ctx context.Context, e model.LogEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO lookup_log (id, created_at, name, title, company, research, opportunities)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Timestamp, e.Name, e.Title, e.Company, e.ResearchText, e.OpportunitiesText,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert lookup %s", e.ID)
	}
	return nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
