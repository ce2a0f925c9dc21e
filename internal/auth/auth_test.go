package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/interview-registration/internal/auth"
	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "test-secret"

func sign(t *testing.T, key string, method jwt.SigningMethod, claims auth.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func claims(sub string, role model.Role, ttl time.Duration) auth.Claims {
	return auth.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "interviews",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
}

func TestValidateToken(t *testing.T) {
	v := auth.NewValidator(secret, "interviews")
	user := uuid.NewString()

	actor, err := v.ValidateToken(sign(t, secret, jwt.SigningMethodHS256, claims(user, model.RoleInterviewer, time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, model.Actor{UserID: user, Role: model.RoleInterviewer}, actor)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", sign(t, secret, jwt.SigningMethodHS256, claims(user, model.RoleUser, -time.Minute)), auth.ErrTokenExpired},
		{"wrong key", sign(t, "other", jwt.SigningMethodHS256, claims(user, model.RoleUser, time.Hour)), auth.ErrInvalidToken},
		{"wrong alg", sign(t, secret, jwt.SigningMethodHS512, claims(user, model.RoleUser, time.Hour)), auth.ErrInvalidToken},
		{"subject not uuid", sign(t, secret, jwt.SigningMethodHS256, claims("42", model.RoleUser, time.Hour)), auth.ErrInvalidToken},
		{"unknown role", sign(t, secret, jwt.SigningMethodHS256, claims(user, "root", time.Hour)), auth.ErrInvalidToken},
		{"garbage", "not.a.jwt", auth.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("wrong issuer", func(t *testing.T) {
		c := claims(user, model.RoleUser, time.Hour)
		c.Issuer = "someone-else"
		_, err := v.ValidateToken(sign(t, secret, jwt.SigningMethodHS256, c))
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestRequireAuth(t *testing.T) {
	v := auth.NewValidator(secret, "")
	user := uuid.NewString()

	var seen model.Actor
	h := auth.RequireAuth(v, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Missing or invalid Authorization header"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, secret, jwt.SigningMethodHS256, claims(user, model.RoleAdmin, time.Hour)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, model.Actor{UserID: user, Role: model.RoleAdmin}, seen)
}
