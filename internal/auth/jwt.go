// Package auth verifies bearer tokens and carries the authenticated actor
// through the request context. Token issuance lives elsewhere.
package auth

import (
	"errors"

	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims are the access-token claims: sub is the user id.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Validator checks HS256 access tokens.
type Validator struct {
	signingKey []byte
	issuer     string
}

// NewValidator constructs a Validator. An empty issuer accepts any iss claim.
func NewValidator(signingKey, issuer string) *Validator {
	return &Validator{signingKey: []byte(signingKey), issuer: issuer}
}

// ValidateToken parses tokenString and returns the actor it identifies.
func (v *Validator) ValidateToken(tokenString string) (model.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Actor{}, ErrTokenExpired
		}
		return model.Actor{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return model.Actor{}, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return model.Actor{}, ErrInvalidToken
	}
	if !claims.Role.Valid() {
		return model.Actor{}, ErrInvalidToken
	}
	return model.Actor{UserID: claims.Subject, Role: claims.Role}, nil
}
