package subscriptions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"taskpulse/internal/app"
	authmw "taskpulse/internal/auth"
	"taskpulse/internal/store"
	"taskpulse/internal/store/storetest"
)

func scanSubInto(s store.PushSubscription) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = s.ID
		*dest[1].(*string) = s.UserID
		*dest[2].(*string) = s.Endpoint
		*dest[3].(*string) = s.P256dhKey
		*dest[4].(*string) = s.AuthKey
		*dest[5].(**string) = s.UserAgent
		*dest[6].(*time.Time) = s.CreatedAt
		*dest[7].(*time.Time) = s.UpdatedAt
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

func TestUpsertHandler_CreatedVsRefreshed(t *testing.T) {
	created := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		updatedAt  time.Time
		wantStatus int
	}{
		{"fresh row", created, http.StatusCreated},
		{"refreshed row", created.Add(time.Hour), http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := &storetest.FakeDB{
				QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
					return &storetest.FakeRow{ScanFunc: scanSubInto(store.PushSubscription{
						ID: "s1", UserID: "u1", Endpoint: "https://push.example/ep",
						P256dhKey: "p", AuthKey: "a",
						CreatedAt: created, UpdatedAt: tc.updatedAt,
					})}
				},
			}
			deps := app.Deps{DB: db}

			req := authedRequest(http.MethodPost, "/api/v1/push-subscriptions",
				`{"endpoint":"https://push.example/ep","p256dh_key":"p","auth_key":"a"}`)
			rec := httptest.NewRecorder()

			UpsertHandler(deps).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestUpsertHandler_RequiresKeys(t *testing.T) {
	deps := app.Deps{DB: &storetest.FakeDB{}}

	req := authedRequest(http.MethodPost, "/api/v1/push-subscriptions",
		`{"endpoint":"https://push.example/ep"}`)
	rec := httptest.NewRecorder()

	UpsertHandler(deps).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestDeleteHandler_RequiresEndpoint(t *testing.T) {
	deps := app.Deps{DB: &storetest.FakeDB{}}

	req := authedRequest(http.MethodDelete, "/api/v1/push-subscriptions", `{}`)
	rec := httptest.NewRecorder()

	DeleteHandler(deps).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestDeleteDeadHandler_UnescapesEndpoint(t *testing.T) {
	endpoint := "https://push.example/send/abc123"
	var deleted string
	db := &storetest.FakeDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			deleted = args[0].(string)
			return pgconn.NewCommandTag("DELETE 1"), nil
		},
	}
	deps := app.Deps{DB: db}

	req := httptest.NewRequest(http.MethodDelete,
		"/api/v1/internal/push-subscriptions/"+url.PathEscape(endpoint), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("endpoint", url.PathEscape(endpoint))
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	DeleteDeadHandler(deps).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if deleted != endpoint {
		t.Fatalf("expected endpoint %q deleted, got %q", endpoint, deleted)
	}
}
