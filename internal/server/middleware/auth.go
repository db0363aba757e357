// Package middleware provides HTTP middleware for reviewer authentication.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const reviewerIDKey ContextKey = "reviewerID"

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (ReviewerIDGetter, error)
}

// ReviewerIDGetter extracts the reviewer ID from token claims.
type ReviewerIDGetter interface {
	GetReviewerID() uuid.UUID
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// reviewer ID in the request context.
func AuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := tokens.ValidateToken(tokenString)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), reviewerIDKey, claims.GetReviewerID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken parses "Bearer <token>", accepting any case for the scheme.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="panel"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

// GetReviewerID extracts the authenticated reviewer ID from the request context.
func GetReviewerID(r *http.Request) (uuid.UUID, error) {
	id, ok := r.Context().Value(reviewerIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("reviewer ID not found in request context")
	}
	return id, nil
}

// WithReviewerID returns a context carrying id, as AuthMiddleware would set it.
func WithReviewerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, reviewerIDKey, id)
}
