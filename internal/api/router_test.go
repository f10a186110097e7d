package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"

	"taskpulse/internal/app"
	"taskpulse/internal/config"
	"taskpulse/internal/store/storetest"
)

type noRows struct {
	pgx.Rows
}

func (noRows) Next() bool { return false }
func (noRows) Close()     {}
func (noRows) Err() error { return nil }

type nopBus struct{}

func (nopBus) Publish(ctx context.Context, topic string, payload any) error { return nil }

func testDeps() app.Deps {
	return app.Deps{
		DB: &storetest.FakeDB{
			QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return noRows{}, nil
			},
		},
		Bus: nopBus{},
		Cfg: config.Config{JWTSecret: "test-secret", ServiceToken: "svc-token"},
	}
}

func TestRouter_BindingRequiresServiceToken(t *testing.T) {
	r := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reminders/binding", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d without token, got %d", http.StatusUnauthorized, rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/reminders/binding", nil)
	req.Header.Set("Authorization", "Bearer svc-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d with token, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestRouter_TasksRequireUserToken(t *testing.T) {
	r := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d without token, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRouter_HealthIsPublic(t *testing.T) {
	r := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
