package db

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"time"

	"codeberg.org/nexusdigital/identity/internal/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// creates a configured connection pool and verifies connectivity
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// keep the pool small: managed poolers cap connections aggressively
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	// simple protocol for PgBouncer transaction-mode compatibility
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// translates a database error into the service's error taxonomy.
// Unique violations become DuplicateEmail (email is the only unique
// user-supplied column), missing rows become NotFound, and errors that
// indicate an unprovisioned backend (missing schema, unreachable host,
// bad credentials) become ConfigurationMissing so the adapter can latch.
func ClassifyError(err error, message string) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.Wrap(errors.KindNotFound, message, err)
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return errors.Wrap(errors.KindDuplicateEmail, "email address is already in use", err)
		case pgerrcode.UndefinedTable, pgerrcode.UndefinedColumn,
			pgerrcode.InvalidCatalogName, pgerrcode.InvalidPassword,
			pgerrcode.InvalidAuthorizationSpecification:
			return errors.Wrap(errors.KindConfigurationMissing, "identity backend is not provisioned", err)
		}
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.Wrap(errors.KindConfigurationMissing, "identity backend is unreachable", err)
	}

	return errors.Wrap(errors.KindOther, message, err)
}
