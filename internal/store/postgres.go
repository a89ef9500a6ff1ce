package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/report-qa/internal/model"
)

// Pool is the subset of *pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS fragments (
	id            TEXT PRIMARY KEY,
	seq           INTEGER NOT NULL,
	source        TEXT NOT NULL,
	page          INTEGER NOT NULL,
	start_index   INTEGER NOT NULL,
	text          TEXT NOT NULL,
	organizations TEXT[] NOT NULL,
	vector        REAL[] NOT NULL
);

CREATE TABLE IF NOT EXISTS index_info (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	embed_provider TEXT NOT NULL,
	embed_model    TEXT NOT NULL,
	dimensions     INTEGER NOT NULL,
	fragments      INTEGER NOT NULL,
	built_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	submission_name TEXT NOT NULL,
	questions       INTEGER NOT NULL,
	answered        INTEGER NOT NULL,
	payload         JSONB NOT NULL,
	upload_status   INTEGER NOT NULL DEFAULT 0,
	upload_body     TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_fragments_seq ON fragments(seq);
CREATE INDEX IF NOT EXISTS idx_fragments_organizations ON fragments USING GIN (organizations);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

var fragmentColumns = []string{"id", "seq", "source", "page", "start_index", "text", "organizations", "vector"}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// ReplaceFragments swaps the whole index in one transaction using COPY.
func (s *PostgresStore) ReplaceFragments(ctx context.Context, fragments []IndexedFragment, info IndexInfo) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM fragments`); err != nil {
		return eris.Wrap(err, "postgres: clear fragments")
	}

	rows := make([][]any, len(fragments))
	for i, f := range fragments {
		orgs := f.Fragment.Organizations
		if orgs == nil {
			orgs = []string{}
		}
		rows[i] = []any{
			f.Fragment.ID, i, f.Fragment.Source, f.Fragment.Page, f.Fragment.StartIndex,
			f.Fragment.Text, orgs, f.Vector,
		}
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"fragments"}, fragmentColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return eris.Wrap(err, "postgres: copy fragments")
	}
	if int(n) != len(fragments) {
		return eris.Errorf("postgres: copied %d of %d fragments", n, len(fragments))
	}

	info.Fragments = len(fragments)
	if info.BuiltAt.IsZero() {
		info.BuiltAt = time.Now().UTC()
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO index_info (id, embed_provider, embed_model, dimensions, fragments, built_at) VALUES (1, $1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET embed_provider = EXCLUDED.embed_provider, embed_model = EXCLUDED.embed_model,
		 dimensions = EXCLUDED.dimensions, fragments = EXCLUDED.fragments, built_at = EXCLUDED.built_at`,
		info.EmbedProvider, info.EmbedModel, info.Dimensions, info.Fragments, info.BuiltAt,
	); err != nil {
		return eris.Wrap(err, "postgres: upsert index info")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit fragments")
}

// ListFragments returns every fragment in insertion order.
func (s *PostgresStore) ListFragments(ctx context.Context) ([]IndexedFragment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, page, start_index, text, organizations, vector FROM fragments ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list fragments")
	}
	defer rows.Close()

	var out []IndexedFragment
	for rows.Next() {
		var f IndexedFragment
		if err := rows.Scan(&f.Fragment.ID, &f.Fragment.Source, &f.Fragment.Page, &f.Fragment.StartIndex,
			&f.Fragment.Text, &f.Fragment.Organizations, &f.Vector); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fragment")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate fragments")
}

// GetIndexInfo returns nil when no index has been built yet.
func (s *PostgresStore) GetIndexInfo(ctx context.Context) (*IndexInfo, error) {
	var info IndexInfo
	err := s.pool.QueryRow(ctx,
		`SELECT embed_provider, embed_model, dimensions, fragments, built_at FROM index_info WHERE id = 1`,
	).Scan(&info.EmbedProvider, &info.EmbedModel, &info.Dimensions, &info.Fragments, &info.BuiltAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get index info")
	}
	return &info, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run model.Run) (*model.Run, error) {
	run.ID = uuid.New().String()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, submission_name, questions, answered, payload, upload_status, upload_body, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.SubmissionName, run.Questions, run.Answered, run.Payload, run.UploadStatus, run.UploadBody, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &run, nil
}

func (s *PostgresStore) UpdateRunUpload(ctx context.Context, runID string, status int, body string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET upload_status = $1, upload_body = $2 WHERE id = $3`,
		status, body, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run upload %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	err := s.pool.QueryRow(ctx,
		`SELECT id, submission_name, questions, answered, payload, upload_status, upload_body, created_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.SubmissionName, &r.Questions, &r.Answered, &r.Payload, &r.UploadStatus, &r.UploadBody, &r.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, submission_name, questions, answered, payload, upload_status, upload_body, created_at FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.SubmissionName, &r.Questions, &r.Answered, &r.Payload, &r.UploadStatus, &r.UploadBody, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
