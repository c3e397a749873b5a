package mailer

import (
	"context"

	"codeberg.org/nexusdigital/identity/internal/logger"
)

// Mailer delivers transactional auth mail. The live backend treats
// delivery failures like any other backend failure.
type Mailer interface {
	SendVerification(ctx context.Context, email, link string) error
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer writes mail to the log instead of sending it. Used in
// development and anywhere no SMTP relay is provisioned.
type LogMailer struct{}

var _ Mailer = LogMailer{}

func (LogMailer) SendVerification(_ context.Context, email, link string) error {
	logger.Info("email verification link issued", "email", email, "link", link)
	return nil
}

func (LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	logger.Info("password reset link issued", "email", email, "link", link)
	return nil
}
