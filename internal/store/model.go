package store

import "time"

// TrashState is the tagged variant over the nullable deleted_at column, so
// callers cannot forget to branch on it.
type TrashState struct {
	trashed bool
	at      time.Time
}

func Active() TrashState { return TrashState{} }

func Trashed(at time.Time) TrashState { return TrashState{trashed: true, at: at} }

func (t TrashState) IsTrashed() bool { return t.trashed }

// At returns the deletion timestamp and whether one exists.
func (t TrashState) At() (time.Time, bool) { return t.at, t.trashed }

func trashStateFromPtr(deletedAt *time.Time) TrashState {
	if deletedAt == nil {
		return Active()
	}
	return Trashed(*deletedAt)
}

// Task is the authoritative row for a user's task, reminder and
// recurrence state.
type Task struct {
	ID          int64
	UserID      string
	Title       string
	Description *string
	Color       *string
	Pinned      bool

	Completed bool
	DeletedAt *time.Time

	ReminderAt     *time.Time
	ReminderSent   bool
	DueAt          *time.Time
	IsRecurring    bool
	RecurrenceRule *string
	RecurrenceEnd  *time.Time
	ParentTaskID   *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Trash reports the tri-state deletion status of the task.
func (t Task) Trash() TrashState { return trashStateFromPtr(t.DeletedAt) }

// PushSubscription is a registered browser endpoint for Web Push delivery.
type PushSubscription struct {
	ID        string
	UserID    string
	Endpoint  string
	P256dhKey string
	AuthKey   string
	UserAgent *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListView selects which trash/status slice ListTasks returns.
type ListView string

const (
	ViewActive ListView = "active"
	ViewTrash  ListView = "trash"
	ViewAll    ListView = "all"
)

// StatusFilter narrows ListTasks by completion state.
type StatusFilter string

const (
	StatusAny       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

// TaskPatch is a partial update to a Task. Nil fields are left untouched;
// the wrapper pointer-to-pointer fields distinguish "absent" from "set to
// null".
type TaskPatch struct {
	Title          *string
	Description    **string
	Color          **string
	Pinned         *bool
	DueAt          **time.Time
	ReminderAt     **time.Time
	IsRecurring    *bool
	RecurrenceRule *string
	RecurrenceEnd  **time.Time
}
