package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/nexusdigital/identity/internal/config"
	"codeberg.org/nexusdigital/identity/internal/db"
	"codeberg.org/nexusdigital/identity/internal/logger"
	"codeberg.org/nexusdigital/identity/internal/mailer"
	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/profiles"
	"codeberg.org/nexusdigital/identity/nexus/users"
)

// connects the live identity backend. An absent DATABASE_URL, a failed
// connection, or a failed migration latches the fallback store for the
// process lifetime instead of failing startup.
func InitializeBackend(ctx context.Context, cfg *config.Config, latch *backend.Latch) (backend.AuthBackend, profiles.Store, *pgxpool.Pool) {
	if cfg.DatabaseURL == "" {
		if latch.Trip() {
			logger.Warn("no DATABASE_URL configured, using local credential store")
		}
		return nil, nil, nil
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		if latch.Trip() {
			logger.ErrorErr(err, "database unreachable, using local credential store")
		}
		return nil, nil, nil
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		pool.Close()
		if latch.Trip() {
			logger.ErrorErr(err, "migrations failed, using local credential store")
		}
		return nil, nil, nil
	}

	userRepo := users.NewRepository(pool)
	profileRepo := profiles.NewRepository(pool)
	live := backend.NewLive(userRepo, mailer.LogMailer{}, cfg.BaseURL)

	logger.Info("live identity backend connected")

	return live, profileRepo, pool
}
