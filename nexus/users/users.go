package users

import (
	"context"

	"codeberg.org/nexusdigital/identity/internal/db"
	"codeberg.org/nexusdigital/identity/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// creates a new user repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// scans one user row with nullable text columns normalized to ""
func scanUser(row pgx.Row) (*User, error) {
	var (
		u            User
		email        *string
		passwordHash *string
		displayName  *string
		phoneNumber  *string
		photoURL     *string
		provider     *string
		providerID   *string
	)

	err := row.Scan(
		&u.ID,
		&email,
		&passwordHash,
		&displayName,
		&phoneNumber,
		&photoURL,
		&u.EmailVerified,
		&provider,
		&providerID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Email = deref(email)
	u.PasswordHash = deref(passwordHash)
	u.DisplayName = deref(displayName)
	u.PhoneNumber = deref(phoneNumber)
	u.PhotoURL = deref(photoURL)
	u.Provider = deref(provider)
	u.ProviderID = deref(providerID)

	return &u, nil
}

func deref(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}

// inserts a new email/password user, classified DuplicateEmail on collision
func (r *Repository) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, queryCreate, email, passwordHash))
	if err != nil {
		return nil, db.ClassifyError(err, "failed to create account")
	}
	return u, nil
}

// finds a user by exact email, classified NotFound when absent
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, queryFindByEmail, email))
	if err != nil {
		return nil, db.ClassifyError(err, "account not found")
	}
	return u, nil
}

// finds a user by ID, classified NotFound when absent
func (r *Repository) FindByID(ctx context.Context, userID string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, queryFindByID, userID))
	if err != nil {
		return nil, db.ClassifyError(err, "account not found")
	}
	return u, nil
}

// finds a user by OAuth provider identity or creates a new one
func (r *Repository) FindOrCreateByProvider(
	ctx context.Context,
	provider, providerID, email, displayName, photoURL string,
	emailVerified bool,
) (*User, error) {
	u, err := scanUser(r.db.QueryRow(
		ctx,
		queryFindOrCreateByProvider,
		provider,
		providerID,
		email,
		displayName,
		photoURL,
		emailVerified,
	))
	if err != nil {
		return nil, db.ClassifyError(err, "failed to sign in with provider")
	}
	return u, nil
}

// merges the provided profile fields, classified NotFound when absent
func (r *Repository) UpdateProfile(ctx context.Context, userID string, displayName, photoURL, phoneNumber *string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, queryUpdateProfile, userID, displayName, photoURL, phoneNumber))
	if err != nil {
		return nil, db.ClassifyError(err, "account not found")
	}
	return u, nil
}

// replaces the email and resets the verified flag
func (r *Repository) UpdateEmail(ctx context.Context, userID, newEmail string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, queryUpdateEmail, userID, newEmail))
	if err != nil {
		return nil, db.ClassifyError(err, "failed to update email")
	}
	return u, nil
}

// replaces the stored password hash
func (r *Repository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := r.db.Exec(ctx, queryUpdatePassword, userID, passwordHash)
	if err != nil {
		return db.ClassifyError(err, "failed to update password")
	}

	if tag.RowsAffected() == 0 {
		return errors.E(errors.KindNotFound, "account not found")
	}

	return nil
}

// flips the email verified flag on
func (r *Repository) MarkEmailVerified(ctx context.Context, userID string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, queryMarkEmailVerified, userID))
	if err != nil {
		return nil, db.ClassifyError(err, "account not found")
	}
	return u, nil
}
