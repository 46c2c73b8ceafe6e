package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Problem writes the unified error body ({type, title, status, detail}).
// Detail is always human-readable; type is the machine code clients switch on.
func Problem(c *gin.Context, code int, typ, detail string) {
	c.AbortWithStatusJSON(code, gin.H{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}
