package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdpgate/pkg/requestcontext"
)

var secret = []byte("test-signing-secret")

func signedToken(t *testing.T, claims jwt.Claims, key []byte, method jwt.SigningMethod) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func standardClaims(subject string) *tokenClaims {
	return &tokenClaims{
		Role: "compliance_manager",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "gdpgate-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestValidateToken(t *testing.T) {
	validator := NewValidator(secret, "gdpgate-test")

	t.Run("valid token", func(t *testing.T) {
		token := signedToken(t, standardClaims("alice"), secret, jwt.SigningMethodHS256)
		claims, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.ActorID)
		assert.Equal(t, "compliance_manager", claims.Role)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signedToken(t, standardClaims("alice"), []byte("other"), jwt.SigningMethodHS256)
		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := standardClaims("alice")
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		token := signedToken(t, claims, secret, jwt.SigningMethodHS256)
		_, err := validator.ValidateToken(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := standardClaims("alice")
		claims.Issuer = "someone-else"
		token := signedToken(t, claims, secret, jwt.SigningMethodHS256)
		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := signedToken(t, standardClaims(""), secret, jwt.SigningMethodHS256)
		_, err := validator.ValidateToken(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "subject")
	})

	t.Run("issuer check skipped when unconfigured", func(t *testing.T) {
		open := NewValidator(secret, "")
		claims := standardClaims("alice")
		claims.Issuer = "anything"
		token := signedToken(t, claims, secret, jwt.SigningMethodHS256)
		_, err := open.ValidateToken(token)
		assert.NoError(t, err)
	})
}

func identityEcho(t *testing.T) (http.Handler, *string, *string) {
	t.Helper()
	var actorID, role string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID = requestcontext.ActorID(r.Context())
		role = requestcontext.ActorRole(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return handler, &actorID, &role
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := NewValidator(secret, "")
	inner, actorID, role := identityEcho(t)
	handler := RequireAuth(validator, logger)(inner)

	t.Run("valid bearer token admitted with identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/overrides", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, standardClaims("alice"), secret, jwt.SigningMethodHS256))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice", *actorID)
		assert.Equal(t, "compliance_manager", *role)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/overrides", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/overrides", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOptional(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := NewValidator(secret, "")
	inner, actorID, _ := identityEcho(t)
	handler := Optional(validator, logger)(inner)

	t.Run("anonymous request passes without identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/transactions/validate", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, *actorID)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/transactions/validate", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, standardClaims("alice"), secret, jwt.SigningMethodHS256))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice", *actorID)
	})

	t.Run("invalid token treated as anonymous", func(t *testing.T) {
		*actorID = ""
		req := httptest.NewRequest(http.MethodPost, "/transactions/validate", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, *actorID)
	})
}
