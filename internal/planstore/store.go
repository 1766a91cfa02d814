// Package planstore archives planning runs in a sqlite database.
package planstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusSolved = "solved"
	StatusFailed = "failed"
	StatusError  = "error"
)

// Run is one archived search.
type Run struct {
	ID        string
	TaskName  string
	TaskFile  string
	Status    string
	Meeting   string
	Plan      []string
	PlanCost  int
	Expanded  int
	Generated int
	Duration  time.Duration
	Options   string
	Error     string
	CreatedAt time.Time
}

// Store wraps the database handle.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Save inserts r. A missing ID or creation time is filled in.
func (s *Store) Save(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, task_name, task_file, status, meeting, plan, plan_cost,
			expanded, generated, duration_ns, options, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TaskName, r.TaskFile, r.Status, r.Meeting, strings.Join(r.Plan, "\n"), r.PlanCost,
		r.Expanded, r.Generated, int64(r.Duration), r.Options, r.Error, r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// ListOptions filters List.
type ListOptions struct {
	TaskName string
	Limit    int // 0: no limit
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if opts.TaskName != "" {
		query += ` WHERE task_name = ?`
		args = append(args, opts.TaskName)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns the run whose id starts with prefix. The prefix must match
// exactly one run.
func (s *Store) Get(ctx context.Context, prefix string) (*Run, error) {
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", prefix)
	}
}

const runColumns = `id, task_name, task_file, status, meeting, plan, plan_cost,
	expanded, generated, duration_ns, options, error, created_at`

func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		r        Run
		plan     string
		duration int64
		created  int64
	)
	err := rows.Scan(&r.ID, &r.TaskName, &r.TaskFile, &r.Status, &r.Meeting, &plan, &r.PlanCost,
		&r.Expanded, &r.Generated, &duration, &r.Options, &r.Error, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if plan != "" {
		r.Plan = strings.Split(plan, "\n")
	}
	r.Duration = time.Duration(duration)
	r.CreatedAt = time.Unix(0, created).UTC()
	return &r, nil
}
