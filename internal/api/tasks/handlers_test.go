package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"taskpulse/internal/app"
	authmw "taskpulse/internal/auth"
	"taskpulse/internal/eventbus"
	"taskpulse/internal/store"
	"taskpulse/internal/store/storetest"
)

type fakeBus struct {
	topics   []string
	payloads []any
}

func (b *fakeBus) Publish(ctx context.Context, topic string, payload any) error {
	b.topics = append(b.topics, topic)
	b.payloads = append(b.payloads, payload)
	return nil
}

func scanTaskInto(task store.Task) func(dest ...any) error {
	return func(dest ...any) error {
		src := []any{
			&task.ID, &task.UserID, &task.Title, &task.Description, &task.Color, &task.Pinned,
			&task.Completed, &task.DeletedAt,
			&task.ReminderAt, &task.ReminderSent, &task.DueAt,
			&task.IsRecurring, &task.RecurrenceRule, &task.RecurrenceEnd, &task.ParentTaskID,
			&task.CreatedAt, &task.UpdatedAt,
		}
		for i := range dest {
			switch d := dest[i].(type) {
			case *int64:
				*d = *(src[i].(*int64))
			case *string:
				*d = *(src[i].(*string))
			case **string:
				*d = *(src[i].(**string))
			case *bool:
				*d = *(src[i].(*bool))
			case **time.Time:
				*d = *(src[i].(**time.Time))
			case *time.Time:
				*d = *(src[i].(*time.Time))
			case **int64:
				*d = *(src[i].(**int64))
			default:
				panic("scanTaskInto: unhandled dest type")
			}
		}
		return nil
	}
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(authmw.WithUser(req.Context(), authmw.User{ID: "u1"}))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateTaskHandler_RejectsBadRule(t *testing.T) {
	deps := app.Deps{DB: &storetest.FakeDB{}, Bus: &fakeBus{}}

	req := authedRequest(http.MethodPost, "/api/v1/tasks",
		`{"title":"standup","is_recurring":true,"recurrence_rule":"fortnightly"}`)
	rec := httptest.NewRecorder()

	CreateTaskHandler(deps).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestCreateTaskHandler_Unauthorized(t *testing.T) {
	deps := app.Deps{DB: &storetest.FakeDB{}, Bus: &fakeBus{}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader(`{"title":"x"}`))
	rec := httptest.NewRecorder()

	CreateTaskHandler(deps).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestToggleCompleteHandler_PublishesCompletedEvent(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cur := store.Task{ID: 7, UserID: "u1", Title: "standup", CreatedAt: now, UpdatedAt: now}

	db := &storetest.FakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			if len(args) == 1 {
				return &storetest.FakeRow{ScanFunc: scanTaskInto(cur)}
			}
			updated := cur
			updated.Completed = true
			return &storetest.FakeRow{ScanFunc: scanTaskInto(updated)}
		},
	}
	bus := &fakeBus{}
	deps := app.Deps{DB: db, Bus: bus}

	req := withURLParam(authedRequest(http.MethodPatch, "/api/v1/tasks/7/complete", ""), "id", "7")
	rec := httptest.NewRecorder()

	ToggleCompleteHandler(deps).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp ToggleCompleteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Task.Completed {
		t.Fatalf("expected completed task, got %+v", resp.Task)
	}
	if resp.NextTask != nil {
		t.Fatalf("expected no materialized task for non-recurring toggle")
	}

	if len(bus.topics) != 1 || bus.topics[0] != eventbus.TopicTaskEvents {
		t.Fatalf("expected one task-events publish, got %v", bus.topics)
	}
	ev, ok := bus.payloads[0].(eventbus.TaskEvent)
	if !ok || ev.EventType != eventbus.TaskEventCompleted || ev.TaskID != 7 {
		t.Fatalf("unexpected event %+v", bus.payloads[0])
	}
}

func TestToggleCompleteHandler_UncompleteDoesNotPublish(t *testing.T) {
	cur := store.Task{ID: 7, UserID: "u1", Title: "standup", Completed: true}

	db := &storetest.FakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			if len(args) == 1 {
				return &storetest.FakeRow{ScanFunc: scanTaskInto(cur)}
			}
			updated := cur
			updated.Completed = false
			return &storetest.FakeRow{ScanFunc: scanTaskInto(updated)}
		},
	}
	bus := &fakeBus{}
	deps := app.Deps{DB: db, Bus: bus}

	req := withURLParam(authedRequest(http.MethodPatch, "/api/v1/tasks/7/complete", ""), "id", "7")
	rec := httptest.NewRecorder()

	ToggleCompleteHandler(deps).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if len(bus.topics) != 0 {
		t.Fatalf("expected no publish when un-completing, got %v", bus.topics)
	}
}

func TestGetTaskHandler_ForbiddenForOtherUsersTask(t *testing.T) {
	db := &storetest.FakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &storetest.FakeRow{ScanFunc: scanTaskInto(store.Task{ID: 7, UserID: "u2", Title: "theirs"})}
		},
	}
	deps := app.Deps{DB: db}

	req := withURLParam(authedRequest(http.MethodGet, "/api/v1/tasks/7", ""), "id", "7")
	rec := httptest.NewRecorder()

	GetTaskHandler(deps).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d for another user's task, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestMarkReminderSentHandler_NotFound(t *testing.T) {
	db := &storetest.FakeDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}
	deps := app.Deps{DB: db}

	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/api/v1/internal/tasks/99/reminder-sent", nil), "id", "99")
	rec := httptest.NewRecorder()

	MarkReminderSentHandler(deps).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestMarkReminderSentHandler_OK(t *testing.T) {
	db := &storetest.FakeDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}
	deps := app.Deps{DB: db}

	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/api/v1/internal/tasks/7/reminder-sent", nil), "id", "7")
	rec := httptest.NewRecorder()

	MarkReminderSentHandler(deps).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
