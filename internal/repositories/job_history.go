package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/subwatch/internal/models"
)

// HistoryEntry is one journaled terminal transition.
type HistoryEntry struct {
	ID         int64
	JobID      int64
	Status     models.JobStatus
	Message    string
	FinishedAt time.Time
}

// JobHistoryRepository appends and reads the job_history journal.
type JobHistoryRepository struct {
	db *sql.DB
}

// NewJobHistoryRepository creates a new JobHistoryRepository with the given database connection
func NewJobHistoryRepository(db *sql.DB) *JobHistoryRepository {
	return &JobHistoryRepository{db: db}
}

// Append journals a job record that reached a terminal status.
func (r *JobHistoryRepository) Append(record models.JobRecord) error {
	if !record.Status.Terminal() {
		return fmt.Errorf("refusing to journal non-terminal status %s", record.Status)
	}

	finishedAt := record.LastRun
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	query := `
		INSERT INTO job_history (job_id, status, message, finished_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, record.JobID, string(record.Status), record.ProgressMessage, finishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

// List retrieves the most recent journal entries, newest first. A limit of
// zero or less returns everything.
func (r *JobHistoryRepository) List(limit int) ([]HistoryEntry, error) {
	query := `
		SELECT id, job_id, status, message, finished_at
		FROM job_history
		ORDER BY finished_at DESC, id DESC
	`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			entry  HistoryEntry
			status string
		)
		if err := rows.Scan(&entry.ID, &entry.JobID, &status, &entry.Message, &entry.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.Status = models.ParseJobStatus(status)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// ListForJob retrieves the journal entries for a single job id, newest first.
func (r *JobHistoryRepository) ListForJob(jobID int64, limit int) ([]HistoryEntry, error) {
	query := `
		SELECT id, job_id, status, message, finished_at
		FROM job_history
		WHERE job_id = ?
		ORDER BY finished_at DESC, id DESC
	`

	args := []any{jobID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			entry  HistoryEntry
			status string
		)
		if err := rows.Scan(&entry.ID, &entry.JobID, &status, &entry.Message, &entry.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.Status = models.ParseJobStatus(status)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than the cutoff and returns how many rows went.
func (r *JobHistoryRepository) Prune(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM job_history WHERE finished_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
