package backend

import (
	"context"
)

// Identity is the minimal authenticated-principal record. ID is
// immutable once created; everything else may change through the
// update operations.
type Identity struct {
	ID            string `json:"id"`
	Email         string `json:"email,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	PhotoURL      string `json:"photo_url,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// ProfileUpdate carries partial identity profile changes; nil fields
// are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	PhoneNumber *string
	PhotoURL    *string
}

// SocialIdentity is the normalized result of a completed OAuth consent
// flow, ready to be matched against or turned into an Identity.
type SocialIdentity struct {
	Provider      string
	ProviderID    string
	Email         string
	Name          string
	AvatarURL     string
	EmailVerified bool
}

// AuthBackend is the surface both the live identity backend and the
// fallback credential store implement. Every call can fail with a
// classified error; ConfigurationMissing is what trips the adapter's
// fallback latch.
type AuthBackend interface {
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	SocialSignIn(ctx context.Context, social SocialIdentity) (*Identity, error)
	SignOut(ctx context.Context, userID string) error
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*Identity, error)
	UpdateEmail(ctx context.Context, userID, newEmail string) (*Identity, error)
	UpdatePassword(ctx context.Context, userID, newPassword string) error
	SendEmailVerification(ctx context.Context, userID string) (*Identity, error)
	ConfirmEmail(ctx context.Context, userID string) (*Identity, error)
	SendPasswordReset(ctx context.Context, email string) error
}
