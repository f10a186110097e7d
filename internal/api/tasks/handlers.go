package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"taskpulse/internal/api/httpx"
	"taskpulse/internal/app"
	authmw "taskpulse/internal/auth"
	"taskpulse/internal/eventbus"
	"taskpulse/internal/store"
)

const handlerTimeout = 10 * time.Second

type TaskResponse struct {
	ID          int64   `json:"id"`
	UserID      string  `json:"user_id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	Pinned      bool    `json:"pinned"`

	Completed bool       `json:"completed"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	ReminderAt   *time.Time `json:"reminder_at,omitempty"`
	ReminderSent bool       `json:"reminder_sent"`
	DueAt        *time.Time `json:"due_at,omitempty"`

	IsRecurring    bool       `json:"is_recurring"`
	RecurrenceRule *string    `json:"recurrence_rule,omitempty"`
	RecurrenceEnd  *time.Time `json:"recurrence_end,omitempty"`
	ParentTaskID   *int64     `json:"parent_task_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(t store.Task) TaskResponse {
	return TaskResponse{
		ID:             t.ID,
		UserID:         t.UserID,
		Title:          t.Title,
		Description:    t.Description,
		Color:          t.Color,
		Pinned:         t.Pinned,
		Completed:      t.Completed,
		DeletedAt:      t.DeletedAt,
		ReminderAt:     t.ReminderAt,
		ReminderSent:   t.ReminderSent,
		DueAt:          t.DueAt,
		IsRecurring:    t.IsRecurring,
		RecurrenceRule: t.RecurrenceRule,
		RecurrenceEnd:  t.RecurrenceEnd,
		ParentTaskID:   t.ParentTaskID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func parseInt64Param(r *http.Request, key string) (int64, error) {
	s := chi.URLParam(r, key)
	return strconv.ParseInt(s, 10, 64)
}

func CreateTaskHandler(deps app.Deps) http.HandlerFunc {
	type request struct {
		Title          string     `json:"title"`
		Description    *string    `json:"description"`
		Color          *string    `json:"color"`
		Pinned         bool       `json:"pinned"`
		ReminderAt     *time.Time `json:"reminder_at"`
		DueAt          *time.Time `json:"due_at"`
		IsRecurring    bool       `json:"is_recurring"`
		RecurrenceRule *string    `json:"recurrence_rule"`
		RecurrenceEnd  *time.Time `json:"recurrence_end"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteErr(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		t, err := store.CreateTask(ctx, deps.DB, store.CreateTaskParams{
			UserID:         user.ID,
			Title:          req.Title,
			Description:    req.Description,
			Color:          req.Color,
			Pinned:         req.Pinned,
			ReminderAt:     req.ReminderAt,
			DueAt:          req.DueAt,
			IsRecurring:    req.IsRecurring,
			RecurrenceRule: req.RecurrenceRule,
			RecurrenceEnd:  req.RecurrenceEnd,
		})
		if err != nil {
			httpx.WriteStoreErr(w, err, "failed to create task")
			return
		}

		httpx.WriteJSON(w, http.StatusCreated, toResponse(t))
	}
}

func ListTasksHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		view := store.ListView(r.URL.Query().Get("view"))
		if view == "" {
			view = store.ViewActive
		}
		status := store.StatusFilter(r.URL.Query().Get("status"))
		if status == "" {
			status = store.StatusAny
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		list, err := store.ListTasks(ctx, deps.DB, user.ID, view, status)
		if err != nil {
			httpx.WriteStoreErr(w, err, "failed to list tasks")
			return
		}

		out := make([]TaskResponse, 0, len(list))
		for _, t := range list {
			out = append(out, toResponse(t))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func GetTaskHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		taskID, err := parseInt64Param(r, "id")
		if err != nil || taskID <= 0 {
			httpx.WriteErr(w, http.StatusBadRequest, "invalid task id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		t, err := store.GetTask(ctx, deps.DB, user.ID, taskID)
		if err != nil {
			httpx.WriteStoreErr(w, err, "failed to fetch task")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, toResponse(t))
	}
}

func UpdateTaskHandler(deps app.Deps) http.HandlerFunc {
	type request struct {
		Title            *string `json:"title"`
		Description      *string `json:"description"`
		ClearDescription *bool   `json:"clear_description"`
		Color            *string `json:"color"`
		ClearColor       *bool   `json:"clear_color"`
		Pinned           *bool   `json:"pinned"`

		DueAt      *time.Time `json:"due_at"`
		ClearDueAt *bool      `json:"clear_due_at"`

		ReminderAt      *time.Time `json:"reminder_at"`
		ClearReminderAt *bool      `json:"clear_reminder_at"`

		IsRecurring        *bool      `json:"is_recurring"`
		RecurrenceRule     *string    `json:"recurrence_rule"`
		RecurrenceEnd      *time.Time `json:"recurrence_end"`
		ClearRecurrenceEnd *bool      `json:"clear_recurrence_end"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		taskID, err := parseInt64Param(r, "id")
		if err != nil || taskID <= 0 {
			httpx.WriteErr(w, http.StatusBadRequest, "invalid task id")
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteErr(w, http.StatusBadRequest, "invalid request body")
			return
		}

		patch := store.TaskPatch{
			Title:          req.Title,
			Pinned:         req.Pinned,
			IsRecurring:    req.IsRecurring,
			RecurrenceRule: req.RecurrenceRule,
		}
		if req.ClearDescription != nil && *req.ClearDescription {
			var null *string
			patch.Description = &null
		} else if req.Description != nil {
			patch.Description = &req.Description
		}
		if req.ClearColor != nil && *req.ClearColor {
			var null *string
			patch.Color = &null
		} else if req.Color != nil {
			patch.Color = &req.Color
		}
		if req.ClearDueAt != nil && *req.ClearDueAt {
			var null *time.Time
			patch.DueAt = &null
		} else if req.DueAt != nil {
			patch.DueAt = &req.DueAt
		}
		if req.ClearReminderAt != nil && *req.ClearReminderAt {
			var null *time.Time
			patch.ReminderAt = &null
		} else if req.ReminderAt != nil {
			patch.ReminderAt = &req.ReminderAt
		}
		if req.ClearRecurrenceEnd != nil && *req.ClearRecurrenceEnd {
			var null *time.Time
			patch.RecurrenceEnd = &null
		} else if req.RecurrenceEnd != nil {
			patch.RecurrenceEnd = &req.RecurrenceEnd
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		t, err := store.UpdateTask(ctx, deps.DB, user.ID, taskID, patch)
		if err != nil {
			httpx.WriteStoreErr(w, err, "failed to update task")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, toResponse(t))
	}
}

// ToggleCompleteResponse carries the updated task and, when completing a
// recurring task materialized a next occurrence, that new task too.
type ToggleCompleteResponse struct {
	Task     TaskResponse  `json:"task"`
	NextTask *TaskResponse `json:"next_task,omitempty"`
}

func ToggleCompleteHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		taskID, err := parseInt64Param(r, "id")
		if err != nil || taskID <= 0 {
			httpx.WriteErr(w, http.StatusBadRequest, "invalid task id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		updated, next, err := store.ToggleComplete(ctx, deps.DB, user.ID, taskID, time.Now().UTC())
		if err != nil {
			httpx.WriteStoreErr(w, err, "failed to toggle task")
			return
		}

		if updated.Completed {
			publishCompleted(r.Context(), deps, updated)
		}

		resp := ToggleCompleteResponse{Task: toResponse(updated)}
		if next != nil {
			n := toResponse(*next)
			resp.NextTask = &n
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}

// publishCompleted emits the completed lifecycle event after the commit.
// Best-effort: a bus failure is logged, never surfaced to the caller, and
// never rolls back the completion.
func publishCompleted(ctx context.Context, deps app.Deps, t store.Task) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	ev := eventbus.TaskEvent{
		EventID:        ulid.Make().String(),
		EventType:      eventbus.TaskEventCompleted,
		TaskID:         t.ID,
		UserID:         t.UserID,
		TaskData:       taskData(t),
		Timestamp:      time.Now().UTC(),
		IsRecurring:    t.IsRecurring,
		RecurrenceRule: t.RecurrenceRule,
	}
	if err := deps.Bus.Publish(pubCtx, eventbus.TopicTaskEvents, ev); err != nil {
		deps.Log.Error().Err(err).Int64("task_id", t.ID).Msg("failed to publish completed event")
	}
}

func taskData(t store.Task) map[string]any {
	data := map[string]any{
		"id":         t.ID,
		"title":      t.Title,
		"completed":  t.Completed,
		"pinned":     t.Pinned,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
	if t.Description != nil {
		data["description"] = *t.Description
	}
	if t.DueAt != nil {
		data["due_at"] = *t.DueAt
	}
	if t.ReminderAt != nil {
		data["reminder_at"] = *t.ReminderAt
	}
	if t.ParentTaskID != nil {
		data["parent_task_id"] = *t.ParentTaskID
	}
	return data
}

func SoftDeleteHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		taskID, err := parseInt64Param(r, "id")
		if err != nil || taskID <= 0 {
			httpx.WriteErr(w, http.StatusBadRequest, "invalid task id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		if err := store.SoftDelete(ctx, deps.DB, user.ID, taskID); err != nil {
			httpx.WriteStoreErr(w, err, "failed to delete task")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func RestoreHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		taskID, err := parseInt64Param(r, "id")
		if err != nil || taskID <= 0 {
			httpx.WriteErr(w, http.StatusBadRequest, "invalid task id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		if err := store.Restore(ctx, deps.DB, user.ID, taskID); err != nil {
			httpx.WriteStoreErr(w, err, "failed to restore task")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func PermanentDeleteHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		taskID, err := parseInt64Param(r, "id")
		if err != nil || taskID <= 0 {
			httpx.WriteErr(w, http.StatusBadRequest, "invalid task id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		if err := store.PermanentDelete(ctx, deps.DB, user.ID, taskID); err != nil {
			httpx.WriteStoreErr(w, err, "failed to delete task")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func EmptyTrashHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		if err := store.EmptyTrash(ctx, deps.DB, user.ID); err != nil {
			httpx.WriteStoreErr(w, err, "failed to empty trash")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// MarkReminderSentHandler serves the notification worker's trusted
// callback after a successful push. Not user-scoped; the route is gated by
// the service token, not a user JWT.
func MarkReminderSentHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID, err := parseInt64Param(r, "id")
		if err != nil || taskID <= 0 {
			httpx.WriteErr(w, http.StatusBadRequest, "invalid task id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		if err := store.MarkReminderSent(ctx, deps.DB, taskID); err != nil {
			httpx.WriteStoreErr(w, err, "failed to mark reminder sent")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
