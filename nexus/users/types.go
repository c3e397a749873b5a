package users

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// handles user database operations
type Repository struct {
	db *pgxpool.Pool
}

// User is a stored identity record in the live backend.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	DisplayName   string    `json:"display_name"`
	PhoneNumber   string    `json:"phone_number"`
	PhotoURL      string    `json:"photo_url"`
	EmailVerified bool      `json:"email_verified"`
	Provider      string    `json:"provider,omitempty"`
	ProviderID    string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
