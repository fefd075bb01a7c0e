package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"land-review/internal/auth"
	"land-review/internal/models"
)

type contextKey string

const (
	ActorKey     contextKey = "actor"
	RequestIDKey contextKey = "request_id"
	requestKey   contextKey = "request_info"
)

// AuthMiddleware validates identity tokens
type AuthMiddleware struct {
	authService *auth.Service
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate validates the bearer token and adds the actor to the context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := m.authService.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			message := "Invalid or expired token"
			if errors.Is(err, auth.ErrMissingToken) {
				message = "Missing or malformed authorization header"
			}
			slog.Debug("Authentication failed", "path", r.URL.Path, "error", err)
			respondWithError(w, http.StatusUnauthorized, message)
			return
		}

		if info, ok := r.Context().Value(requestKey).(*requestInfo); ok {
			info.actorID = actor.ID
		}

		ctx := context.WithValue(r.Context(), ActorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithActor returns ctx carrying actor, for handlers mounted without Authenticate
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor retrieves the authenticated actor from the request context
func GetActor(r *http.Request) (models.Actor, bool) {
	actor, ok := r.Context().Value(ActorKey).(models.Actor)
	return actor, ok
}

// GetRequestID retrieves the request id from the request context
func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(RequestIDKey).(string)
	return id
}

// Helper function to respond with JSON error
func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message, "kind": "unauthenticated"}); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
