// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists generation jobs, authored content records, and
// usage telemetry in a SQLite database. Writes between pipeline stages
// double as checkpoints: a crash loses only the in-flight subtopic.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/kbgen/pkg/types"
)

// ErrNotFound is returned when a job or content record does not exist.
var ErrNotFound = errors.New("not found")

// timeFormat is RFC 3339 with fixed-width nanoseconds. RFC3339Nano
// trims trailing zeros, which breaks lexicographic timestamp comparison
// and ordering in SQL.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the kbgen SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at cfg.Path and creates the schema
// if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = "kbgen.db"
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			kb_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			mode TEXT NOT NULL,
			scale TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subtopics (
			job_id TEXT NOT NULL REFERENCES jobs(id),
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			word_count INTEGER NOT NULL DEFAULT 0,
			quality_score REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (job_id, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subtopics_job ON subtopics(job_id, position)`,
		`CREATE TABLE IF NOT EXISTS contents (
			id TEXT PRIMARY KEY,
			kb_id TEXT NOT NULL,
			job_id TEXT NOT NULL,
			subtopic TEXT NOT NULL,
			record TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contents_kb ON contents(kb_id)`,
		`CREATE TABLE IF NOT EXISTS usage_events (
			id TEXT PRIMARY KEY,
			kb_id TEXT NOT NULL,
			content_id TEXT,
			type TEXT NOT NULL,
			query TEXT,
			success INTEGER NOT NULL,
			helpful INTEGER NOT NULL,
			follow_up INTEGER NOT NULL,
			latency_ms REAL NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kb ON usage_events(kb_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// CreateJob persists a new generation job and its initial subtopics.
func (s *Store) CreateJob(ctx context.Context, job *types.GenerationJob) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeFormat)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO jobs (id, kb_id, topic, mode, scale, status, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.KnowledgeBaseID, job.Topic, string(job.Mode), string(job.Scale),
		string(job.Status), job.Error, now, now,
	)
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}

	for i, st := range job.Subtopics {
		if err := insertSubtopic(ctx, tx, job.ID, st.Name, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetSubtopics records the discovered subtopics for a job, all pending.
func (s *Store) SetSubtopics(ctx context.Context, jobID string, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subtopics WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("clearing subtopics: %w", err)
	}
	for i, name := range names {
		if err := insertSubtopic(ctx, tx, jobID, name, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertSubtopic(ctx context.Context, tx *sql.Tx, jobID, name string, position int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO subtopics (job_id, name, position, status) VALUES (?, ?, ?, ?)`,
		jobID, name, position, string(types.SubtopicPending),
	)
	if err != nil {
		return fmt.Errorf("inserting subtopic %s: %w", name, err)
	}
	return nil
}

// UpdateSubtopic records a subtopic's status, attempt count, counters,
// and error message.
func (s *Store) UpdateSubtopic(ctx context.Context, jobID string, st types.Subtopic) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subtopics SET status = ?, attempts = ?, error = ?, word_count = ?, quality_score = ?
		 WHERE job_id = ? AND name = ?`,
		string(st.Status), st.Attempts, st.Error, st.WordCount, st.QualityScore, jobID, st.Name,
	)
	if err != nil {
		return fmt.Errorf("updating subtopic %s: %w", st.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subtopic %s in job %s: %w", st.Name, jobID, ErrNotFound)
	}
	return s.touchJob(ctx, jobID)
}

// UpdateJobStatus records the aggregate job status and error message.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status types.JobStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC().Format(timeFormat), jobID,
	)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", jobID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return nil
}

func (s *Store) touchJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeFormat), jobID,
	)
	if err != nil {
		return fmt.Errorf("touching job %s: %w", jobID, err)
	}
	return nil
}

// GetJob loads a job and its subtopics ordered by position.
func (s *Store) GetJob(ctx context.Context, jobID string) (*types.GenerationJob, error) {
	var (
		job                  types.GenerationJob
		mode, scale, status  string
		errMsg               sql.NullString
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kb_id, topic, mode, scale, status, error, created_at, updated_at
		 FROM jobs WHERE id = ?`, jobID,
	).Scan(&job.ID, &job.KnowledgeBaseID, &job.Topic, &mode, &scale, &status, &errMsg, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading job %s: %w", jobID, err)
	}

	job.Mode = types.ProcessingMode(mode)
	job.Scale = types.ScalePreset(scale)
	job.Status = types.JobStatus(status)
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	job.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	job.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, status, attempts, error, word_count, quality_score
		 FROM subtopics WHERE job_id = ? ORDER BY position`, jobID)
	if err != nil {
		return nil, fmt.Errorf("loading subtopics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			st       types.Subtopic
			stStatus string
			stErr    sql.NullString
		)
		if err := rows.Scan(&st.Name, &stStatus, &st.Attempts, &stErr, &st.WordCount, &st.QualityScore); err != nil {
			return nil, fmt.Errorf("scanning subtopic: %w", err)
		}
		st.Status = types.SubtopicStatus(stStatus)
		if stErr.Valid {
			st.Error = stErr.String
		}
		job.Subtopics = append(job.Subtopics, st)
	}
	return &job, rows.Err()
}
