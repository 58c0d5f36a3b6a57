package response

import "github.com/gin-gonic/gin"

// Success writes the standard success envelope.
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

// Error writes the standard error envelope.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
