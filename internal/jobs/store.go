package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrAmbiguousID is returned by Find when a prefix matches several jobs.
var ErrAmbiguousID = errors.New("job id prefix matches more than one job")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// fixed-width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists extraction job history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the job database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset job history)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Begin records a running job and returns it.
func (s *Store) Begin(ctx context.Context, sourcePath string, origin Origin, region string, interval float64) (*Job, error) {
	job := &Job{
		ID:            uuid.NewString(),
		SourcePath:    sourcePath,
		Origin:        origin,
		Status:        StatusRunning,
		Region:        region,
		FrameInterval: interval,
		CreatedAt:     time.Now().UTC(),
	}

	err := s.execWithRetry(ctx,
		`INSERT INTO jobs (id, source_path, origin, status, region, frame_interval, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.SourcePath,
		job.Origin,
		job.Status,
		nullableString(job.Region),
		job.FrameInterval,
		job.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// Complete marks a job as succeeded.
func (s *Store) Complete(ctx context.Context, id string, outcome Outcome) error {
	err := s.execWithRetry(ctx,
		`UPDATE jobs
         SET status = ?, sampled_frames = ?, skipped_frames = ?, entries = ?,
             output_path = ?, processing_seconds = ?, finished_at = ?
         WHERE id = ?`,
		StatusSucceeded,
		outcome.SampledFrames,
		outcome.SkippedFrames,
		outcome.Entries,
		nullableString(outcome.OutputPath),
		outcome.ProcessingSeconds,
		time.Now().UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// Fail marks a job as failed with the error message.
func (s *Store) Fail(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		StatusFailed,
		nullableString(msg),
		time.Now().UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

const jobColumns = `id, source_path, origin, status, region, frame_interval, sampled_frames,
    skipped_frames, entries, output_path, error_message, processing_seconds, created_at, finished_at`

// GetByID fetches a job, returning nil when it does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Find resolves a full job ID or a unique ID prefix, as printed by the job
// list. It returns nil when nothing matches.
func (s *Store) Find(ctx context.Context, ref string) (*Job, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	job, err := s.GetByID(ctx, ref)
	if job != nil || err != nil {
		return job, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, ref, ref)
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	defer rows.Close()

	var matches []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousID, ref)
	}
}

// List returns the most recent jobs first. A limit <= 0 returns all jobs.
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*Job, error) {
	var (
		job        Job
		region     sql.NullString
		outputPath sql.NullString
		errMsg     sql.NullString
		createdAt  string
		finishedAt sql.NullString
	)
	err := row.Scan(
		&job.ID,
		&job.SourcePath,
		&job.Origin,
		&job.Status,
		&region,
		&job.FrameInterval,
		&job.SampledFrames,
		&job.SkippedFrames,
		&job.Entries,
		&outputPath,
		&errMsg,
		&job.ProcessingSeconds,
		&createdAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Region = region.String
	job.OutputPath = outputPath.String
	job.ErrorMessage = errMsg.String
	if t, perr := time.Parse(timeLayout, createdAt); perr == nil {
		job.CreatedAt = t
	}
	if finishedAt.Valid {
		if t, perr := time.Parse(timeLayout, finishedAt.String); perr == nil {
			job.FinishedAt = t
		}
	}
	return &job, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
