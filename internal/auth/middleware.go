package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// TokenValidator turns a bearer token into an actor.
type TokenValidator interface {
	ValidateToken(tokenString string) (model.Actor, error)
}

type contextKeyActor struct{}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a model.Actor) context.Context {
	return context.WithValue(ctx, contextKeyActor{}, a)
}

// ActorFrom returns the authenticated actor stored by RequireAuth.
func ActorFrom(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(contextKeyActor{}).(model.Actor)
	return a, ok
}

// RequireAuth rejects requests without a valid bearer token with 401.
func RequireAuth(validator TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.Warn("unauthorized access - missing token",
					zap.String("request_id", middleware.GetReqID(r.Context())))
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			actor, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("unauthorized access - invalid token",
					zap.Error(err),
					zap.String("request_id", middleware.GetReqID(r.Context())))
				unauthorized(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg})
}
