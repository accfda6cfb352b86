package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/artpar/worldgate/domain/run"
	"github.com/artpar/worldgate/ports"
)

// RunStore implements ports.RunStore using SQLite.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new SQLite run store.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

const runColumns = `id, source, digest, status, error_code, error, world_name, elements, duration_us, created_at`

// Create stores a new run.
func (s *RunStore) Create(ctx context.Context, r run.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO parse_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Source, r.Digest, string(r.Status), r.ErrorCode, r.Error,
		r.WorldName, r.Elements, r.Duration.Microseconds(), r.CreatedAt.UTC())

	return err
}

// Get retrieves a run by ID.
func (s *RunStore) Get(ctx context.Context, id string) (run.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM parse_runs
		WHERE id = ?
	`, id)

	return scanRun(row)
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]run.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM parse_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectRuns(rows)
}

// ListBySource returns the most recent runs for one document.
func (s *RunStore) ListBySource(ctx context.Context, source string, limit int) ([]run.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM parse_runs
		WHERE source = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, source, limit)
	if err != nil {
		return nil, err
	}
	return collectRuns(rows)
}

// DeleteBefore removes runs created before t.
func (s *RunStore) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM parse_runs WHERE created_at < ?
	`, t.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (run.Run, error) {
	var r run.Run
	var status string
	var durationUS int64

	err := row.Scan(
		&r.ID, &r.Source, &r.Digest, &status, &r.ErrorCode, &r.Error,
		&r.WorldName, &r.Elements, &durationUS, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return run.Run{}, ErrNotFound
	}
	if err != nil {
		return run.Run{}, err
	}

	r.Status = run.Status(status)
	r.Duration = time.Duration(durationUS) * time.Microsecond
	return r, nil
}

func collectRuns(rows *sql.Rows) ([]run.Run, error) {
	defer rows.Close()

	var runs []run.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Ensure interface compliance.
var _ ports.RunStore = (*RunStore)(nil)
