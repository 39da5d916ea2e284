/*
identity.go - Request identity middleware

PURPOSE:
  Resolves the current user from the X-User-ID header and exposes it to
  the ledger through its Identity interface. Real authentication (tokens,
  sessions) is an external concern; this layer only carries the resolved
  id through the request context.
*/
package api

import (
	"context"
	"errors"
	"net/http"
)

type contextKey string

const userIDKey contextKey = "user_id"

// ErrNoIdentity is returned when a request carries no user id.
var ErrNoIdentity = errors.New("no user identity on request")

// UserIDHeader is the header carrying the caller's user id.
const UserIDHeader = "X-User-ID"

// RequireIdentity rejects requests without an X-User-ID header and stores
// the id in the request context for downstream handlers.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserIDHeader)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "Missing "+UserIDHeader+" header", nil)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ContextIdentity reads the user id the middleware stored. It implements
// ledger.Identity.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", ErrNoIdentity
	}
	return userID, nil
}
