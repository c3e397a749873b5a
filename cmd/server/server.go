package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/nexusdigital/identity/internal/config"
	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/credstore"
	"codeberg.org/nexusdigital/identity/nexus/geoip"
	"codeberg.org/nexusdigital/identity/nexus/session"
)

const (
	// idle client sessions are dropped after this long
	sessionTTL = 30 * 24 * time.Hour
)

// creates and configures a new server instance with all dependencies
func NewServer(cfg *config.Config, providers []string) (*Server, error) {
	ctx := context.Background()

	latch := backend.NewLatch()

	live, liveProfiles, pool := InitializeBackend(ctx, cfg, latch)

	store, err := credstore.Open(cfg.FallbackDir)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	geo := geoip.New(cfg.GeoIPBaseURL)

	manager := session.NewManager(live, liveProfiles, store, latch, geo, sessionTTL)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	server := &Server{
		db:        pool,
		config:    cfg,
		store:     store,
		latch:     latch,
		manager:   manager,
		providers: providers,
		router:    router,
	}

	if err := RegisterRoutes(router, server); err != nil {
		server.Close()
		return nil, err
	}

	return server, nil
}

// releases everything the server holds
func (s *Server) Close() {
	s.manager.Close()
	s.store.Close()
	if s.db != nil {
		s.db.Close()
	}
}
