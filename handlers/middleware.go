package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"parley/auth"
	"parley/errors"

	"github.com/google/uuid"
)

type contextKey int

const userIDKey contextKey = iota

// RequireAuth proves the bearer token and stashes the resolved identity in
// the request context. A token naming no parseable identity is a 401, same
// as a bad signature.
func RequireAuth(tokens *auth.TokenIssuer, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, log, errors.ErrInvalidToken)
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				writeError(w, log, errors.ErrInvalidToken)
				return
			}
			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				writeError(w, log, errors.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated identity stored by RequireAuth.
func UserID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(userIDKey).(uuid.UUID)
	return id, ok
}

// Recover answers a panicking handler with a 500 instead of letting the
// fault take the process down; in-memory state has nothing to recover from.
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("Recovered from handler panic", "path", r.URL.Path, "panic", rec)
					writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
