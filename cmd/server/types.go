package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/nexusdigital/identity/internal/config"
	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/credstore"
	"codeberg.org/nexusdigital/identity/nexus/session"
)

// holds all dependencies and state for the API server
type Server struct {
	db        *pgxpool.Pool // nil when no live backend is configured
	config    *config.Config
	store     *credstore.Store
	latch     *backend.Latch
	manager   *session.Manager
	providers []string
	router    *gin.Engine
}
