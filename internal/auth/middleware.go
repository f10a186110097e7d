package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type ctxKey struct{}

var userKey ctxKey

// User is the authenticated caller's opaque identity. There is no
// IsAdmin/IsActive here: this service has no local accounts table to
// consult, so authorization beyond "is this a valid token" belongs to the
// identity provider.
type User struct {
	ID string
}

type apiError struct {
	Error string `json:"error"`
}

func FromContext(ctx context.Context) (User, bool) {
	v := ctx.Value(userKey)
	u, ok := v.(User)
	return u, ok
}

func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	return tok, tok != ""
}

// RequireAuth validates a user bearer token signed with secret and
// attaches the opaque user id to the request context.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearerToken(r)
			if !ok {
				writeErr(w, http.StatusUnauthorized, "missing token")
				return
			}

			claims, err := ParseToken(secret, tok)
			if err != nil {
				writeErr(w, http.StatusUnauthorized, "invalid token")
				return
			}

			user := User{ID: claims.UserID}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireService gates the worker-facing internal routes (reminder-sent
// acknowledgement, dead-subscription removal) behind a shared-secret
// bearer token: the notification worker is a trusted service, not a
// signed-in user, so it carries no per-user JWT.
func RequireService(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearerToken(r)
			if !ok || tok == "" || tok != token {
				writeErr(w, http.StatusUnauthorized, "invalid service token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
