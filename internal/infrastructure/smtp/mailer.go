package smtp

import (
	"fmt"
	"net/smtp"

	"github.com/go-todo-api/internal/config"
)

// Mailer sends the application's transactional emails. Delivery is
// fire-and-forget from the caller's point of view: a send failure never rolls
// back an already-issued token.
type Mailer interface {
	SendVerificationEmail(to, verifyURL string) error
	SendPasswordResetEmail(to, resetURL string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendVerificationEmail(to, verifyURL string) error {
	body := fmt.Sprintf(
		"Please confirm your email address by visiting the link below:\r\n\r\n%s\r\n\r\nThe link expires in 24 hours. If you did not sign up, ignore this email.",
		verifyURL,
	)
	return m.send(to, "Confirm your email", body)
}

func (m *mailer) SendPasswordResetEmail(to, resetURL string) error {
	body := fmt.Sprintf(
		"You requested a password reset. Visit the link below to choose a new password:\r\n\r\n%s\r\n\r\nThe link expires in 1 hour. If you did not request this, ignore this email.",
		resetURL,
	)
	return m.send(to, "Reset your password", body)
}

func (m *mailer) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}
