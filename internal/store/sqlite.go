package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/report-qa/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS fragments (
	id            TEXT PRIMARY KEY,
	seq           INTEGER NOT NULL,
	source        TEXT NOT NULL,
	page          INTEGER NOT NULL,
	start_index   INTEGER NOT NULL,
	text          TEXT NOT NULL,
	organizations TEXT NOT NULL,
	vector        BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS index_info (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	embed_provider TEXT NOT NULL,
	embed_model    TEXT NOT NULL,
	dimensions     INTEGER NOT NULL,
	fragments      INTEGER NOT NULL,
	built_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	submission_name TEXT NOT NULL,
	questions       INTEGER NOT NULL,
	answered        INTEGER NOT NULL,
	payload         TEXT NOT NULL,
	upload_status   INTEGER NOT NULL DEFAULT 0,
	upload_body     TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_fragments_seq ON fragments(seq);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplaceFragments swaps the whole index in one transaction.
func (s *SQLiteStore) ReplaceFragments(ctx context.Context, fragments []IndexedFragment, info IndexInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM fragments`); err != nil {
		return eris.Wrap(err, "sqlite: clear fragments")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO fragments (id, seq, source, page, start_index, text, organizations, vector) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare fragment insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, f := range fragments {
		orgs, err := json.Marshal(f.Fragment.Organizations)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal organizations")
		}
		if _, err := stmt.ExecContext(ctx,
			f.Fragment.ID, i, f.Fragment.Source, f.Fragment.Page, f.Fragment.StartIndex,
			f.Fragment.Text, string(orgs), encodeVector(f.Vector),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert fragment %s", f.Fragment.ID)
		}
	}

	info.Fragments = len(fragments)
	if info.BuiltAt.IsZero() {
		info.BuiltAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_info (id, embed_provider, embed_model, dimensions, fragments, built_at) VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET embed_provider = excluded.embed_provider, embed_model = excluded.embed_model,
		 dimensions = excluded.dimensions, fragments = excluded.fragments, built_at = excluded.built_at`,
		info.EmbedProvider, info.EmbedModel, info.Dimensions, info.Fragments, info.BuiltAt,
	); err != nil {
		return eris.Wrap(err, "sqlite: upsert index info")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit fragments")
}

// ListFragments returns every fragment in insertion order.
func (s *SQLiteStore) ListFragments(ctx context.Context) ([]IndexedFragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, page, start_index, text, organizations, vector FROM fragments ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list fragments")
	}
	defer rows.Close() //nolint:errcheck

	var out []IndexedFragment
	for rows.Next() {
		var f IndexedFragment
		var orgs string
		var blob []byte
		if err := rows.Scan(&f.Fragment.ID, &f.Fragment.Source, &f.Fragment.Page, &f.Fragment.StartIndex,
			&f.Fragment.Text, &orgs, &blob); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fragment")
		}
		if err := json.Unmarshal([]byte(orgs), &f.Fragment.Organizations); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal organizations")
		}
		if f.Vector, err = decodeVector(blob); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate fragments")
}

// GetIndexInfo returns nil when no index has been built yet.
func (s *SQLiteStore) GetIndexInfo(ctx context.Context) (*IndexInfo, error) {
	var info IndexInfo
	err := s.db.QueryRowContext(ctx,
		`SELECT embed_provider, embed_model, dimensions, fragments, built_at FROM index_info WHERE id = 1`,
	).Scan(&info.EmbedProvider, &info.EmbedModel, &info.Dimensions, &info.Fragments, &info.BuiltAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get index info")
	}
	return &info, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run model.Run) (*model.Run, error) {
	run.ID = uuid.New().String()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, submission_name, questions, answered, payload, upload_status, upload_body, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SubmissionName, run.Questions, run.Answered, string(run.Payload), run.UploadStatus, run.UploadBody, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &run, nil
}

func (s *SQLiteStore) UpdateRunUpload(ctx context.Context, runID string, status int, body string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET upload_status = ?, upload_body = ? WHERE id = ?`,
		status, body, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run upload %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, submission_name, questions, answered, payload, upload_status, upload_body, created_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, submission_name, questions, answered, payload, upload_status, upload_body, created_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var payload string
	err := row.Scan(&r.ID, &r.SubmissionName, &r.Questions, &r.Answered, &payload, &r.UploadStatus, &r.UploadBody, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Payload = []byte(payload)
	return &r, nil
}
