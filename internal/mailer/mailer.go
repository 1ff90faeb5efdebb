// Package mailer delivers moderation notification emails over SMTP.
package mailer

import (
	"fmt"
	"log/slog"
	"net/smtp"

	"murmur/internal/models"
)

// Mailer is the boundary the comment service dispatches notifications
// through. Delivery is fire-and-forget from the service's perspective.
type Mailer interface {
	// SendModerationNotification mails the administrator approve/delete
	// links embedding the given moderation token. The token is already
	// persisted on the comment before this is called.
	SendModerationNotification(comment *models.Comment, token string) error
}

// SMTPMailer sends mail through a plain-auth SMTP relay. With incomplete
// SMTP configuration it is disabled and every send is a logged no-op.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	adminTo  string
	baseURL  string
	enabled  bool
	logger   *slog.Logger
}

// Options configures an SMTPMailer.
type Options struct {
	Host       string
	Port       string
	Username   string
	Password   string
	From       string
	AdminEmail string
	BaseURL    string
}

// New builds an SMTPMailer. The mailer is enabled only when every SMTP
// setting and the admin address are present.
func New(opts Options, logger *slog.Logger) *SMTPMailer {
	if logger == nil {
		logger = slog.Default()
	}
	enabled := opts.Host != "" && opts.Port != "" && opts.From != "" && opts.AdminEmail != ""
	if !enabled {
		logger.Info("mailer disabled, moderation notifications will not be sent")
	}
	return &SMTPMailer{
		host:     opts.Host,
		port:     opts.Port,
		username: opts.Username,
		password: opts.Password,
		from:     opts.From,
		adminTo:  opts.AdminEmail,
		baseURL:  opts.BaseURL,
		enabled:  enabled,
		logger:   logger,
	}
}

// Enabled reports whether the mailer will actually deliver anything.
func (m *SMTPMailer) Enabled() bool {
	return m.enabled
}

// SendModerationNotification implements Mailer.
func (m *SMTPMailer) SendModerationNotification(comment *models.Comment, token string) error {
	if !m.enabled {
		return nil
	}

	author := "Anonymous"
	if comment.Author != nil && *comment.Author != "" {
		author = *comment.Author
	}

	approveURL := fmt.Sprintf("%s/moderate/comments/%d/approve?token=%s", m.baseURL, comment.ID, token)
	deleteURL := fmt.Sprintf("%s/moderate/comments/%d/delete?token=%s", m.baseURL, comment.ID, token)

	subject := fmt.Sprintf("New comment awaiting moderation from %s", author)
	body := fmt.Sprintf(
		"A new comment is awaiting moderation.\r\n\r\n"+
			"Author: %s\r\n\r\n%s\r\n\r\n"+
			"Approve: %s\r\nDelete: %s\r\n\r\n"+
			"Each link works exactly once.\r\n",
		author, comment.BodyMarkdown, approveURL, deleteURL,
	)

	msg := []byte(fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		m.adminTo, m.from, subject, body,
	))

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	if err := smtp.SendMail(addr, auth, m.from, []string{m.adminTo}, msg); err != nil {
		m.logger.Error("failed to send moderation notification", "comment_id", comment.ID, "error", err)
		return err
	}
	m.logger.Info("moderation notification sent", "comment_id", comment.ID)
	return nil
}
