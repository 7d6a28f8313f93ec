package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mklimuk/orbit/pkg/task"
)

// Repository handles data access
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// LoadTasks returns every stored local task, oldest first.
func (r *Repository) LoadTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, payload FROM local_tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query local tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan local task: %w", err)
		}
		var t task.Task
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("failed to decode local task %s: %w", id, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read local tasks: %w", err)
	}
	return tasks, nil
}

// SaveTasks replaces the stored local tasks with tasks in one transaction.
func (r *Repository) SaveTasks(ctx context.Context, tasks []task.Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM local_tasks`); err != nil {
		return fmt.Errorf("failed to clear local tasks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO local_tasks (id, payload, created_at, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		t.Children = nil
		payload, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode local task %s: %w", t.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, t.ID, string(payload), t.CreatedAt, t.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert local task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit local tasks: %w", err)
	}
	return nil
}

// StatsRecord is one row of the stats history.
type StatsRecord struct {
	ID             int64     `json:"id"`
	TakenAt        time.Time `json:"takenAt"`
	Total          int       `json:"total"`
	Completed      int       `json:"completed"`
	InProgress     int       `json:"inProgress"`
	Overdue        int       `json:"overdue"`
	Upcoming       int       `json:"upcoming"`
	CompletionRate float64   `json:"completionRate"`
	Rejected       int       `json:"rejected"`
}

// InsertStats appends a stats history row.
func (r *Repository) InsertStats(rec StatsRecord) error {
	query := `INSERT INTO stats_history (taken_at, total, completed, in_progress, overdue, upcoming, completion_rate, rejected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, rec.TakenAt.UTC(), rec.Total, rec.Completed, rec.InProgress,
		rec.Overdue, rec.Upcoming, rec.CompletionRate, rec.Rejected)
	if err != nil {
		return fmt.Errorf("failed to insert stats: %w", err)
	}
	return nil
}

// ListStats returns up to limit history rows, newest first.
func (r *Repository) ListStats(limit int) ([]StatsRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	query := `SELECT id, taken_at, total, completed, in_progress, overdue, upcoming, completion_rate, rejected
		FROM stats_history ORDER BY taken_at DESC, id DESC LIMIT ?`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats history: %w", err)
	}
	defer rows.Close()

	var out []StatsRecord
	for rows.Next() {
		var rec StatsRecord
		if err := rows.Scan(&rec.ID, &rec.TakenAt, &rec.Total, &rec.Completed, &rec.InProgress,
			&rec.Overdue, &rec.Upcoming, &rec.CompletionRate, &rec.Rejected); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CalendarSyncRecord links a task to the calendar event published for it.
type CalendarSyncRecord struct {
	TaskID    string
	EventID   string
	SyncKey   string
	UpdatedAt time.Time
}

// InsertCalendarSync records a newly published event.
func (r *Repository) InsertCalendarSync(taskID, eventID, syncKey string) error {
	query := `INSERT INTO calendar_sync (task_id, event_id, sync_key) VALUES (?, ?, ?)`
	_, err := r.db.Exec(query, taskID, eventID, syncKey)
	if err != nil {
		return fmt.Errorf("failed to insert calendar sync: %w", err)
	}
	return nil
}

// GetCalendarSync returns the record for taskID, or nil if there is none.
func (r *Repository) GetCalendarSync(taskID string) (*CalendarSyncRecord, error) {
	query := `SELECT task_id, event_id, sync_key, updated_at FROM calendar_sync WHERE task_id = ?`
	row := r.db.QueryRow(query, taskID)

	var rec CalendarSyncRecord
	err := row.Scan(&rec.TaskID, &rec.EventID, &rec.SyncKey, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get calendar sync: %w", err)
	}
	return &rec, nil
}

// UpdateCalendarSync stores the new sync key of taskID.
func (r *Repository) UpdateCalendarSync(taskID, syncKey string) error {
	query := `UPDATE calendar_sync SET sync_key = ?, updated_at = CURRENT_TIMESTAMP WHERE task_id = ?`
	_, err := r.db.Exec(query, syncKey, taskID)
	if err != nil {
		return fmt.Errorf("failed to update calendar sync: %w", err)
	}
	return nil
}

// DeleteCalendarSync forgets the event of taskID.
func (r *Repository) DeleteCalendarSync(taskID string) error {
	_, err := r.db.Exec(`DELETE FROM calendar_sync WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete calendar sync: %w", err)
	}
	return nil
}

// ListCalendarSync returns every published event, ordered by task id.
func (r *Repository) ListCalendarSync() ([]CalendarSyncRecord, error) {
	rows, err := r.db.Query(`SELECT task_id, event_id, sync_key, updated_at FROM calendar_sync ORDER BY task_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar sync: %w", err)
	}
	defer rows.Close()

	var out []CalendarSyncRecord
	for rows.Next() {
		var rec CalendarSyncRecord
		if err := rows.Scan(&rec.TaskID, &rec.EventID, &rec.SyncKey, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan calendar sync: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
