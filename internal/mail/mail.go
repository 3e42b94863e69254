// Package mail sends billing documents to clients over SMTP.
package mail

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/transfret/backoffice/internal/config"
)

// Sender wraps the SMTP dialer. A zero Host disables sending, which keeps
// dev environments from needing a mail server.
type Sender struct {
	cfg config.Config
}

func NewSender(cfg config.Config) *Sender { return &Sender{cfg: cfg} }

// SendDocument mails a rendered document to the given address, attaching the
// stored PDF when a path is known.
func (s *Sender) SendDocument(to, subject, body, attachmentPath string) error {
	if to == "" {
		return fmt.Errorf("destinataire manquant")
	}
	if s.cfg.SMTPHost == "" {
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.MailFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	if attachmentPath != "" {
		m.Attach(attachmentPath)
	}
	d := gomail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
