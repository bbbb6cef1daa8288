package auth

import "github.com/gin-gonic/gin"

const ownerIDKey = "ownerID"

// GetOwnerID returns the authenticated owner's ID or empty string.
func GetOwnerID(c *gin.Context) string {
	return c.GetString(ownerIDKey)
}
