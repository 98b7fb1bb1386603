package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error answers the admin/upload failure shape: {"error": message}.
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// Fail answers the display failure shape: {"success": false, "error": message}.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// Success answers 200 with body merged over {"success": true}.
func Success(c *gin.Context, body gin.H) {
	out := gin.H{"success": true}
	for k, v := range body {
		out[k] = v
	}
	c.JSON(http.StatusOK, out)
}

// OK answers 200 with body as-is.
func OK(c *gin.Context, body gin.H) {
	c.JSON(http.StatusOK, body)
}
