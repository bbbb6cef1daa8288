package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerID = "3f2b8c1a-6d4e-4a9b-8c7d-5e6f7a8b9c0d"

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)

	t.Run("Round trip", func(t *testing.T) {
		token, err := m.GenerateAccessToken(ownerID)
		require.NoError(t, err)

		claims, err := m.ParseAndValidate(token)
		require.NoError(t, err)
		assert.Equal(t, ownerID, claims.OwnerID())
	})

	t.Run("Expired token", func(t *testing.T) {
		expired := NewJWTManager("secret", -time.Minute)
		token, err := expired.GenerateAccessToken(ownerID)
		require.NoError(t, err)

		_, err = m.ParseAndValidate(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		token, err := NewJWTManager("other", time.Minute).GenerateAccessToken(ownerID)
		require.NoError(t, err)

		_, err = m.ParseAndValidate(token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("Missing subject", func(t *testing.T) {
		token, err := m.GenerateAccessToken("")
		require.NoError(t, err)

		_, err = m.ParseAndValidate(token)
		assert.Error(t, err)
	})

	t.Run("Subject that is not a UUID", func(t *testing.T) {
		token, err := m.GenerateAccessToken("owner-1")
		require.NoError(t, err)

		_, err = m.ParseAndValidate(token)
		assert.Error(t, err)
	})

	t.Run("Missing expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: ownerID}).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = m.ParseAndValidate(token)
		assert.Error(t, err)
	})
}

func TestAuthRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewJWTManager("secret", time.Minute)
	token, err := m.GenerateAccessToken(ownerID)
	require.NoError(t, err)
	badSubject, err := m.GenerateAccessToken("owner-1")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthRequired(m), func(c *gin.Context) {
		c.String(http.StatusOK, GetOwnerID(c))
	})

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"Valid token", "Bearer " + token, http.StatusOK, ownerID},
		{"Lowercase scheme", "bearer " + token, http.StatusOK, ownerID},
		{"Missing header", "", http.StatusUnauthorized, `{"error":"missing Authorization header"}`},
		{"Wrong scheme", "Basic " + token, http.StatusUnauthorized, `{"error":"invalid Authorization header format"}`},
		{"Garbage token", "Bearer nope", http.StatusUnauthorized, `{"error":"invalid or expired token"}`},
		{"Non-UUID subject", "Bearer " + badSubject, http.StatusUnauthorized, `{"error":"invalid or expired token"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}
