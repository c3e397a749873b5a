package profiles

import (
	"context"
	"encoding/json"
	"fmt"

	"codeberg.org/nexusdigital/identity/internal/db"
	"codeberg.org/nexusdigital/identity/internal/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres-backed profile store
type Repository struct {
	db *pgxpool.Pool
}

// creates a new profile repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) Get(ctx context.Context, userID string) (*Profile, error) {
	var (
		p            Profile
		username     *string
		provider     *string
		lastLogin    []byte
		loginHistory []byte
	)

	err := r.db.QueryRow(ctx, queryGet, userID).Scan(
		&p.UserID,
		&username,
		&provider,
		&p.CreatedAt,
		&lastLogin,
		&loginHistory,
		&p.IsNewUser,
	)
	if err != nil {
		return nil, db.ClassifyError(err, "profile not found")
	}

	if username != nil {
		p.Username = *username
	}
	if provider != nil {
		p.Provider = *provider
	}

	if lastLogin != nil {
		var ev LoginEvent
		if err := json.Unmarshal(lastLogin, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode last login: %w", err)
		}
		p.LastLogin = &ev
	}

	p.LoginHistory = []LoginEvent{}
	if loginHistory != nil {
		if err := json.Unmarshal(loginHistory, &p.LoginHistory); err != nil {
			return nil, fmt.Errorf("failed to decode login history: %w", err)
		}
	}

	return &p, nil
}

func (r *Repository) Set(ctx context.Context, userID string, p *Profile) error {
	history := p.LoginHistory
	if history == nil {
		history = []LoginEvent{}
	}

	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode login history: %w", err)
	}

	var lastLoginJSON []byte
	if p.LastLogin != nil {
		lastLoginJSON, err = json.Marshal(p.LastLogin)
		if err != nil {
			return fmt.Errorf("failed to encode last login: %w", err)
		}
	}

	_, err = r.db.Exec(ctx, querySet,
		userID,
		nullable(p.Username),
		nullable(p.Provider),
		p.CreatedAt,
		lastLoginJSON,
		historyJSON,
		p.IsNewUser,
	)
	if err != nil {
		return db.ClassifyError(err, "failed to save profile")
	}

	return nil
}

func (r *Repository) Update(ctx context.Context, userID string, upd Update) error {
	tag, err := r.db.Exec(ctx, queryUpdate, userID, upd.Username, upd.Provider, upd.IsNewUser)
	if err != nil {
		return db.ClassifyError(err, "failed to update profile")
	}

	if tag.RowsAffected() == 0 {
		return errors.E(errors.KindNotFound, "profile not found")
	}

	return nil
}

func (r *Repository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool

	err := r.db.QueryRow(ctx, queryUsernameTaken, username).Scan(&taken)
	if err != nil {
		return false, db.ClassifyError(err, "failed to check username")
	}

	return taken, nil
}

func (r *Repository) AppendLoginEvent(ctx context.Context, userID string, ev LoginEvent) error {
	eventJSON, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode login event: %w", err)
	}

	// single-element array for jsonb containment (append-unique)
	elementJSON, err := json.Marshal([]LoginEvent{ev})
	if err != nil {
		return fmt.Errorf("failed to encode login event: %w", err)
	}

	tag, err := r.db.Exec(ctx, queryAppendLoginEvent, userID, elementJSON, eventJSON)
	if err != nil {
		return db.ClassifyError(err, "failed to record login")
	}

	if tag.RowsAffected() == 0 {
		return errors.E(errors.KindNotFound, "profile not found")
	}

	return nil
}

// returns nil for empty strings so optional columns stay NULL
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
