package backend

import (
	"context"

	"codeberg.org/nexusdigital/identity/internal/auth"
	"codeberg.org/nexusdigital/identity/internal/errors"
	"codeberg.org/nexusdigital/identity/internal/mailer"
	"codeberg.org/nexusdigital/identity/nexus/users"
	"golang.org/x/crypto/bcrypt"
)

// Live is the real identity backend: Postgres-backed user records with
// mail-based verification and reset flows.
type Live struct {
	repo    *users.Repository
	mail    mailer.Mailer
	baseURL string
}

var _ AuthBackend = (*Live)(nil)

// creates the live backend over a user repository
func NewLive(repo *users.Repository, mail mailer.Mailer, baseURL string) *Live {
	return &Live{repo: repo, mail: mail, baseURL: baseURL}
}

// converts a stored user row into the identity shape the rest of the
// system works with
func identityFromUser(u *users.User) *Identity {
	return &Identity{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		PhoneNumber:   u.PhoneNumber,
		PhotoURL:      u.PhotoURL,
		EmailVerified: u.EmailVerified,
	}
}

func (l *Live) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(errors.KindOther, "failed to create account", err)
	}

	u, err := l.repo.Create(ctx, email, string(hash))
	if err != nil {
		return nil, err
	}

	return identityFromUser(u), nil
}

func (l *Live) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	u, err := l.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errors.E(errors.KindInvalidCredentials, "invalid email or password")
	}

	return identityFromUser(u), nil
}

func (l *Live) SocialSignIn(ctx context.Context, social SocialIdentity) (*Identity, error) {
	u, err := l.repo.FindOrCreateByProvider(
		ctx,
		social.Provider,
		social.ProviderID,
		social.Email,
		social.Name,
		social.AvatarURL,
		social.EmailVerified,
	)
	if err != nil {
		return nil, err
	}

	return identityFromUser(u), nil
}

// the live backend keeps no server-side session state; the adapter
// owns the current-identity pointer
func (l *Live) SignOut(_ context.Context, _ string) error {
	return nil
}

func (l *Live) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*Identity, error) {
	u, err := l.repo.UpdateProfile(ctx, userID, upd.DisplayName, upd.PhotoURL, upd.PhoneNumber)
	if err != nil {
		return nil, err
	}

	return identityFromUser(u), nil
}

func (l *Live) UpdateEmail(ctx context.Context, userID, newEmail string) (*Identity, error) {
	u, err := l.repo.UpdateEmail(ctx, userID, newEmail)
	if err != nil {
		return nil, err
	}

	return identityFromUser(u), nil
}

func (l *Live) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(errors.KindOther, "failed to update password", err)
	}

	return l.repo.UpdatePassword(ctx, userID, string(hash))
}

func (l *Live) SendEmailVerification(ctx context.Context, userID string) (*Identity, error) {
	u, err := l.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	token, err := auth.GenerateActionToken(u.ID, auth.PurposeVerifyEmail)
	if err != nil {
		return nil, errors.Wrap(errors.KindOther, "failed to issue verification link", err)
	}

	link := l.baseURL + "/api/v1/auth/verify?token=" + token
	if err := l.mail.SendVerification(ctx, u.Email, link); err != nil {
		return nil, errors.Wrap(errors.KindOther, "failed to send verification email", err)
	}

	return identityFromUser(u), nil
}

func (l *Live) ConfirmEmail(ctx context.Context, userID string) (*Identity, error) {
	u, err := l.repo.MarkEmailVerified(ctx, userID)
	if err != nil {
		return nil, err
	}

	return identityFromUser(u), nil
}

func (l *Live) SendPasswordReset(ctx context.Context, email string) error {
	u, err := l.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := auth.GenerateActionToken(u.ID, auth.PurposeResetPassword)
	if err != nil {
		return errors.Wrap(errors.KindOther, "failed to issue reset link", err)
	}

	link := l.baseURL + "/reset-password?token=" + token
	if err := l.mail.SendPasswordReset(ctx, u.Email, link); err != nil {
		return errors.Wrap(errors.KindOther, "failed to send password reset email", err)
	}

	return nil
}
