// basecampy | 2026
// smtp.go

package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/Raghav000001/basecampy/internal/config"
)

// SMTPMailer delivers over implicit TLS (port 465 style). Sends are
// blocking on the caller's context goroutine; there is no retry queue.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendVerificationEmail(
	ctx context.Context,
	to, username, link string,
) error {
	body := verificationBody(username, link)
	return m.send(ctx, to, "Please Verify Your Email", body)
}

func (m *SMTPMailer) SendPasswordResetEmail(
	ctx context.Context,
	to, username, link string,
) error {
	body := passwordResetBody(username, link)
	return m.send(ctx, to, "Reset Your Password", body)
}

func (m *SMTPMailer) send(
	ctx context.Context,
	to, subject, htmlBody string,
) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	msg := []byte(
		fmt.Sprintf("From: %s\r\n", m.cfg.From) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			htmlBody,
	)

	serverAddr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	tlsConfig := &tls.Config{
		ServerName: m.cfg.Host,
	}

	conn, err := tls.Dial("tcp", serverAddr, tlsConfig)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Quit() //nolint:errcheck // best-effort close

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}

	return nil
}
