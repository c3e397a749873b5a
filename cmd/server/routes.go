package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/nexusdigital/identity/api/rest/auth"
	"codeberg.org/nexusdigital/identity/api/rest/health"
	"codeberg.org/nexusdigital/identity/api/websocket"
	"codeberg.org/nexusdigital/identity/internal/guard"
	"codeberg.org/nexusdigital/identity/internal/ratelimit"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) error {
	router.Use(CORSMiddleware(server.config))
	router.GET("/health", health.Handler(server.latch))

	rateLimit, err := ratelimit.Middleware(server.config.AuthRateLimit, server.config.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	attach := guard.Attach(server.manager)

	v1 := router.Group("/api/v1")
	v1.Use(attach)

	{
		v1.GET("/ping", health.PingHandler)

		auth.RegisterRoutes(v1, server.providers, rateLimit)
		websocket.RegisterRoutes(v1)
	}

	// page-style guards exercised by browser navigation; the handlers
	// just confirm access, the marketing site serves the content
	account := router.Group("/account", attach, guard.Protect())
	{
		account.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}

	members := router.Group("/members", attach, guard.ProtectVerified())
	{
		members.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}

	return nil
}
