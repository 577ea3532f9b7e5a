// Package auth extracts the acting identity from bearer tokens and places it
// on the request context. Role strings are parsed downstream at the domain
// boundary; this layer only verifies the token and lifts its claims.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/platform/httputil"
	"gdpgate/pkg/requestcontext"
)

// Claims is the identity carried by a verified token.
type Claims struct {
	ActorID string
	Role    string
}

// Validator verifies HMAC-signed bearer tokens.
type Validator struct {
	secret []byte
	issuer string
}

// NewValidator creates a Validator. An empty issuer skips issuer checking.
func NewValidator(secret []byte, issuer string) *Validator {
	return &Validator{secret: secret, issuer: issuer}
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ValidateToken parses and verifies a token string, returning the identity
// claims it carries.
func (v *Validator) ValidateToken(tokenString string) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("token expired: %w", err)
		}
		return Claims{}, fmt.Errorf("token invalid: %w", err)
	}
	if !token.Valid {
		return Claims{}, errors.New("token invalid")
	}
	if claims.Subject == "" {
		return Claims{}, errors.New("token missing subject")
	}
	return Claims{ActorID: claims.Subject, Role: claims.Role}, nil
}

// TokenValidator is what the middleware needs from a verifier.
type TokenValidator interface {
	ValidateToken(tokenString string) (Claims, error)
}

// RequireAuth rejects requests without a verifiable bearer identity.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := bearerClaims(r, validator)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized request",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, r, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid bearer token"))
				return
			}
			ctx := requestcontext.WithActorID(r.Context(), claims.ActorID)
			ctx = requestcontext.WithActorRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional attaches identity when a valid token is present and lets
// anonymous requests through. Validation endpoints accept calls from
// integrations that authenticate at the network edge.
func Optional(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := bearerClaims(r, validator)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := requestcontext.WithActorID(r.Context(), claims.ActorID)
			ctx = requestcontext.WithActorRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerClaims(r *http.Request, validator TokenValidator) (Claims, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Claims{}, errors.New("no bearer token")
	}
	return validator.ValidateToken(token)
}
