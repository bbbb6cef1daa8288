package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/shop-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/shop-scheduler/internal/pkg/response"
)

var (
	ErrAuthRequired      = apperror.New(http.StatusUnauthorized, "missing Authorization header")
	ErrInvalidAuthHeader = apperror.New(http.StatusUnauthorized, "invalid Authorization header format")
	ErrInvalidToken      = apperror.New(http.StatusUnauthorized, "invalid or expired token")
)

// AuthRequired is a Gin middleware that validates JWT from Authorization: Bearer <token>
func AuthRequired(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, ErrAuthRequired)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Error(c, ErrInvalidAuthHeader)
			c.Abort()
			return
		}

		claims, err := jwtManager.ParseAndValidate(parts[1])
		if err != nil {
			response.Error(c, ErrInvalidToken.WithErr(err))
			c.Abort()
			return
		}

		// Store owner info into Gin context for later handlers.
		c.Set(ownerIDKey, claims.OwnerID())

		c.Next()
	}
}
