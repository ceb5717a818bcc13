// basecampy | 2026
// mailer.go

package mail

import (
	"context"
	"log/slog"
)

// Mailer is the outbound email collaborator. Implementations must treat a
// send as best-effort from the caller's point of view: account creation
// never fails because a message could not be delivered.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, username, link string) error
	SendPasswordResetEmail(ctx context.Context, to, username, link string) error
}

// LogMailer is the development sender: it logs the link instead of
// delivering it.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerificationEmail(
	ctx context.Context,
	to, username, link string,
) error {
	m.logger.Info("verification email (not sent, smtp disabled)",
		"to", to,
		"username", username,
		"link", link,
	)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(
	ctx context.Context,
	to, username, link string,
) error {
	m.logger.Info("password reset email (not sent, smtp disabled)",
		"to", to,
		"username", username,
		"link", link,
	)
	return nil
}
