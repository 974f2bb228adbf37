package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONSigned sends a detached-signature envelope
func JSONSigned(c *gin.Context, status int, message, signature string) {
	c.JSON(status, gin.H{
		"message":   message,
		"signature": signature,
	})
}

// JSONError sends the structured error body and stops the handler chain
func JSONError(c *gin.Context, status int, code int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":  "ERROR",
		"code":    code,
		"message": message,
	})
}
