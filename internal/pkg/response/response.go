package response

import "github.com/gin-gonic/gin"

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, data)
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"error": message,
		"code":  code,
	})
}

// AbortError writes the error body and stops the handler chain.
func AbortError(c *gin.Context, statusCode int, code string, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"error": message,
		"code":  code,
	})
}

func FieldError(c *gin.Context, statusCode int, code string, message string, field string) {
	c.JSON(statusCode, gin.H{
		"error": message,
		"code":  code,
		"field": field,
	})
}
