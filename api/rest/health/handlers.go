package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/nexusdigital/identity/nexus/backend"
)

// Response represents the health check response
type Response struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
	Backend string `json:"backend"`
}

// returns the server health status, including which identity backend
// is active
func Handler(latch *backend.Latch) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, Response{
			Status:  "healthy",
			Service: "nexus-identity",
			Version: "1.0.0",
			Backend: latch.Mode().String(),
		})
	}
}

// responds with pong for testing
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}
