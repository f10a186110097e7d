package store

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"taskpulse/internal/recurrence"
)

const (
	minTitleLen = 1
	maxTitleLen = 200
	maxDescLen  = 1000
)

func validateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < minTitleLen || n > maxTitleLen {
		return fmt.Errorf("%w: title must be 1-200 characters", ErrValidation)
	}
	return nil
}

func validateDescription(desc *string) error {
	if desc != nil && utf8.RuneCountInString(*desc) > maxDescLen {
		return fmt.Errorf("%w: description must be at most 1000 characters", ErrValidation)
	}
	return nil
}

// CreateTaskParams carries the fields a new task may be created with.
// Pointer fields are optional and left as the column default (NULL/false)
// when omitted.
type CreateTaskParams struct {
	UserID         string
	Title          string
	Description    *string
	Color          *string
	Pinned         bool
	ReminderAt     *time.Time
	DueAt          *time.Time
	IsRecurring    bool
	RecurrenceRule *string
	RecurrenceEnd  *time.Time
}

// CreateTask validates and persists a new task owned by UserID. An
// is_recurring request with no parseable recurrence_rule fails
// validation.
func CreateTask(ctx context.Context, db DBTX, p CreateTaskParams) (Task, error) {
	if err := validateTitle(p.Title); err != nil {
		return Task{}, err
	}
	if err := validateDescription(p.Description); err != nil {
		return Task{}, err
	}
	if p.IsRecurring {
		if p.RecurrenceRule == nil {
			return Task{}, fmt.Errorf("%w: is_recurring requires a recurrence_rule", ErrValidation)
		}
		if err := recurrence.Validate(*p.RecurrenceRule); err != nil {
			return Task{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	reminderAt := utcPtr(p.ReminderAt)
	dueAt := utcPtr(p.DueAt)
	recurrenceEnd := utcPtr(p.RecurrenceEnd)

	var t Task
	err := db.QueryRow(ctx,
		`INSERT INTO tasks
		   (user_id, title, description, color, pinned,
		    reminder_at, reminder_sent, due_at,
		    is_recurring, recurrence_rule, recurrence_end,
		    created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,false,$7,$8,$9,$10,now(),now())
		 RETURNING id, user_id, title, description, color, pinned,
		           completed, deleted_at,
		           reminder_at, reminder_sent, due_at,
		           is_recurring, recurrence_rule, recurrence_end, parent_task_id,
		           created_at, updated_at`,
		p.UserID, p.Title, p.Description, p.Color, p.Pinned,
		reminderAt, dueAt,
		p.IsRecurring, p.RecurrenceRule, recurrenceEnd,
	).Scan(scanArgs(&t)...)
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// scanArgs returns the Scan destinations matching the column order used by
// every SELECT ... RETURNING in this file, so the shape only needs writing
// once.
func scanArgs(t *Task) []any {
	return []any{
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Color, &t.Pinned,
		&t.Completed, &t.DeletedAt,
		&t.ReminderAt, &t.ReminderSent, &t.DueAt,
		&t.IsRecurring, &t.RecurrenceRule, &t.RecurrenceEnd, &t.ParentTaskID,
		&t.CreatedAt, &t.UpdatedAt,
	}
}

const taskColumns = `id, user_id, title, description, color, pinned,
	completed, deleted_at,
	reminder_at, reminder_sent, due_at,
	is_recurring, recurrence_rule, recurrence_end, parent_task_id,
	created_at, updated_at`

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// GetTask fetches a single task. The row is looked up by id alone so a
// task owned by another user surfaces as ErrForbidden, distinct from
// ErrNotFound when no row exists at all. Trashed tasks are still visible
// here; only ListTasks' active view hides them.
func GetTask(ctx context.Context, db DBTX, userID string, id int64) (Task, error) {
	var t Task
	err := db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`,
		id,
	).Scan(scanArgs(&t)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	if t.UserID != userID {
		return Task{}, ErrForbidden
	}
	return t, nil
}

// ListTasks returns userID's tasks per view (active/trash/all) and
// status filter, pinned first then created_at descending.
func ListTasks(ctx context.Context, db DBTX, userID string, view ListView, status StatusFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	switch view {
	case ViewActive:
		query += ` AND deleted_at IS NULL`
	case ViewTrash:
		query += ` AND deleted_at IS NOT NULL`
	case ViewAll:
	default:
		query += ` AND deleted_at IS NULL`
	}
	switch status {
	case StatusPending:
		query += ` AND completed = false`
	case StatusCompleted:
		query += ` AND completed = true`
	}
	query += ` ORDER BY pinned DESC, created_at DESC`

	rows, err := db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]Task, 0, 32)
	for rows.Next() {
		var t Task
		if err := rows.Scan(scanArgs(&t)...); err != nil {
			return nil, fmt.Errorf("list tasks scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks rows: %w", err)
	}
	return out, nil
}

// TaskPatch fields are documented on the struct in model.go.
func UpdateTask(ctx context.Context, db DBTX, userID string, id int64, patch TaskPatch) (Task, error) {
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return Task{}, err
		}
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return Task{}, err
		}
	}
	if patch.RecurrenceRule != nil {
		if err := recurrence.Validate(*patch.RecurrenceRule); err != nil {
			return Task{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	cur, err := GetTask(ctx, db, userID, id)
	if err != nil {
		return Task{}, err
	}

	title := cur.Title
	if patch.Title != nil {
		title = *patch.Title
	}
	desc := cur.Description
	if patch.Description != nil {
		desc = *patch.Description
	}
	color := cur.Color
	if patch.Color != nil {
		color = *patch.Color
	}
	pinned := cur.Pinned
	if patch.Pinned != nil {
		pinned = *patch.Pinned
	}
	dueAt := cur.DueAt
	if patch.DueAt != nil {
		dueAt = utcPtr(*patch.DueAt)
	}

	reminderAt := cur.ReminderAt
	reminderSent := cur.ReminderSent
	if patch.ReminderAt != nil {
		// Mutating reminder_at always resets the at-most-once latch.
		reminderAt = utcPtr(*patch.ReminderAt)
		reminderSent = false
	}

	isRecurring := cur.IsRecurring
	if patch.IsRecurring != nil {
		isRecurring = *patch.IsRecurring
	}
	recurrenceRule := cur.RecurrenceRule
	if patch.RecurrenceRule != nil {
		recurrenceRule = patch.RecurrenceRule
	}
	recurrenceEnd := cur.RecurrenceEnd
	if patch.RecurrenceEnd != nil {
		recurrenceEnd = utcPtr(*patch.RecurrenceEnd)
	}
	if isRecurring && recurrenceRule == nil {
		return Task{}, fmt.Errorf("%w: is_recurring requires a recurrence_rule", ErrValidation)
	}

	var t Task
	err = db.QueryRow(ctx,
		`UPDATE tasks SET
		   title=$1, description=$2, color=$3, pinned=$4, due_at=$5,
		   reminder_at=$6, reminder_sent=$7,
		   is_recurring=$8, recurrence_rule=$9, recurrence_end=$10,
		   updated_at=now()
		 WHERE id=$11 AND user_id=$12
		 RETURNING `+taskColumns,
		title, desc, color, pinned, dueAt,
		reminderAt, reminderSent,
		isRecurring, recurrenceRule, recurrenceEnd,
		id, userID,
	).Scan(scanArgs(&t)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// ToggleComplete flips completed and, when transitioning false->true on
// a recurring task, materializes the next occurrence in the same
// transaction. Only when a next occurrence is actually inserted does the
// just-completed task have is_recurring cleared and become a historical
// instance; a terminated series leaves it untouched. Returns the updated
// original task and, if one was materialized, the new occurrence.
func ToggleComplete(ctx context.Context, db Beginner, userID string, id int64, now time.Time) (updated Task, next *Task, err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return Task{}, nil, fmt.Errorf("toggle complete: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := GetTask(ctx, tx, userID, id)
	if err != nil {
		return Task{}, nil, err
	}

	newCompleted := !cur.Completed
	willMaterialize := !cur.Completed && newCompleted && cur.IsRecurring && cur.RecurrenceRule != nil

	var nextAt *time.Time
	if willMaterialize {
		base := recurrence.BaseDate(cur.ReminderAt, cur.DueAt, now)
		computed, rerr := recurrence.NextOccurrence(base, *cur.RecurrenceRule, cur.RecurrenceEnd)
		if rerr != nil {
			return Task{}, nil, fmt.Errorf("%w: %v", ErrValidation, rerr)
		}
		nextAt = computed
	}

	// is_recurring is cleared only when a next occurrence exists; a
	// terminated series keeps the flag on the completed task.
	newIsRecurring := cur.IsRecurring
	if nextAt != nil {
		newIsRecurring = false
	}

	var updatedTask Task
	err = tx.QueryRow(ctx,
		`UPDATE tasks SET completed=$1, is_recurring=$2, updated_at=now()
		 WHERE id=$3 AND user_id=$4
		 RETURNING `+taskColumns,
		newCompleted, newIsRecurring, id, userID,
	).Scan(scanArgs(&updatedTask)...)
	if err != nil {
		return Task{}, nil, fmt.Errorf("toggle complete: update: %w", err)
	}

	var materialized *Task
	if nextAt != nil {
		parentID := cur.ID
		if cur.ParentTaskID != nil {
			parentID = *cur.ParentTaskID
		}

		var newReminderAt, newDueAt *time.Time
		if cur.ReminderAt != nil {
			newReminderAt = nextAt
		} else {
			newDueAt = nextAt
		}

		var n Task
		err = tx.QueryRow(ctx,
			`INSERT INTO tasks
			   (user_id, title, description, color, pinned,
			    reminder_at, reminder_sent, due_at,
			    is_recurring, recurrence_rule, recurrence_end, parent_task_id,
			    created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,false,$7,true,$8,$9,$10,now(),now())
			 RETURNING `+taskColumns,
			userID, cur.Title, cur.Description, cur.Color, cur.Pinned,
			newReminderAt, newDueAt,
			cur.RecurrenceRule, cur.RecurrenceEnd, parentID,
		).Scan(scanArgs(&n)...)
		if err != nil {
			return Task{}, nil, fmt.Errorf("toggle complete: materialize: %w", err)
		}
		materialized = &n
	}

	if err := tx.Commit(ctx); err != nil {
		return Task{}, nil, fmt.Errorf("toggle complete: commit: %w", err)
	}
	return updatedTask, materialized, nil
}

// SoftDelete sets deleted_at, moving the task to the trash view and out
// of the scheduler's reach. Returns ErrForbidden when the task belongs to
// another user, ErrNotFound when it does not exist or is already trashed.
func SoftDelete(ctx context.Context, db DBTX, userID string, id int64) error {
	if _, err := GetTask(ctx, db, userID, id); err != nil {
		return err
	}
	tag, err := db.Exec(ctx,
		`UPDATE tasks SET deleted_at = now(), updated_at = now()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Restore clears deleted_at, returning a trashed task to the active view.
func Restore(ctx context.Context, db DBTX, userID string, id int64) error {
	if _, err := GetTask(ctx, db, userID, id); err != nil {
		return err
	}
	tag, err := db.Exec(ctx,
		`UPDATE tasks SET deleted_at = NULL, updated_at = now()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NOT NULL`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PermanentDelete removes a task row and its label-association rows.
// Label CRUD lives in a neighboring service sharing this database, so
// only the one join table is touched here.
func PermanentDelete(ctx context.Context, db DBTX, userID string, id int64) error {
	if _, err := GetTask(ctx, db, userID, id); err != nil {
		return err
	}
	if _, err := db.Exec(ctx,
		`DELETE FROM task_labels WHERE task_id = $1`,
		id,
	); err != nil {
		return fmt.Errorf("permanent delete: label rows: %w", err)
	}
	tag, err := db.Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("permanent delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EmptyTrash permanently removes every trashed task owned by userID.
func EmptyTrash(ctx context.Context, db DBTX, userID string) error {
	if _, err := db.Exec(ctx,
		`DELETE FROM task_labels WHERE task_id IN (
		   SELECT id FROM tasks WHERE user_id = $1 AND deleted_at IS NOT NULL
		 )`,
		userID,
	); err != nil {
		return fmt.Errorf("empty trash: label rows: %w", err)
	}
	if _, err := db.Exec(ctx,
		`DELETE FROM tasks WHERE user_id = $1 AND deleted_at IS NOT NULL`,
		userID,
	); err != nil {
		return fmt.Errorf("empty trash: %w", err)
	}
	return nil
}

// MarkReminderSent is NOT user-scoped: it is invoked by the notification
// worker over a trusted service-to-service channel, identifying the task
// by id alone. Idempotent.
func MarkReminderSent(ctx context.Context, db DBTX, id int64) error {
	tag, err := db.Exec(ctx,
		`UPDATE tasks SET reminder_sent = true, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DueReminder is the scheduler query's row shape: just enough of the
// task to build a ReminderEvent per subscription.
type DueReminder struct {
	TaskID     int64
	UserID     string
	Title      string
	ReminderAt time.Time
	DueAt      *time.Time
}

// ListDueReminders returns tasks whose reminder is due, unsent, and not
// soft-deleted as of now.
func ListDueReminders(ctx context.Context, db DBTX, now time.Time) ([]DueReminder, error) {
	rows, err := db.Query(ctx,
		`SELECT id, user_id, title, reminder_at, due_at
		 FROM tasks
		 WHERE reminder_at IS NOT NULL
		   AND reminder_at <= $1
		   AND reminder_sent = false
		   AND deleted_at IS NULL`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()

	out := make([]DueReminder, 0, 16)
	for rows.Next() {
		var d DueReminder
		if err := rows.Scan(&d.TaskID, &d.UserID, &d.Title, &d.ReminderAt, &d.DueAt); err != nil {
			return nil, fmt.Errorf("list due reminders scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due reminders rows: %w", err)
	}
	return out, nil
}
