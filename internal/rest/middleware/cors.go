package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/streamkey/streamkey/internal/types"
)

// allowedMethods covers the verbs the subscription API actually serves.
var allowedMethods = strings.Join([]string{
	http.MethodGet,
	http.MethodPost,
	http.MethodDelete,
	http.MethodOptions,
}, ", ")

// CORSMiddleware handles CORS for the browser-facing endpoints
func CORSMiddleware(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*") // TODO: restrict to the streaming frontend origin
	c.Writer.Header().Set("Access-Control-Allow-Methods", allowedMethods)
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+types.HeaderRequestID)
	c.Writer.Header().Set("Access-Control-Expose-Headers", types.HeaderRequestID)
	c.Writer.Header().Set("Access-Control-Max-Age", "86400")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
