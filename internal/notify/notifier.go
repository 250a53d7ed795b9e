// Package notify delivers OTP confirmation codes to buyers. The order
// lifecycle manager only sees the Notifier interface; checkout success is
// never reported before Send returns.
package notify

import (
	"bytes"
	"fmt"
	"log"
	"net/smtp"
	"time"

	html "github.com/gofiber/template/html/v2"

	"gardenly/internal/config"
)

type Notifier interface {
	// SendOTP sends the confirmation code for a pending order to the
	// buyer's registered address.
	SendOTP(to, name, code string, expires time.Time) error
}

// NewFromConfig picks the SMTP mailer when SMTP is configured and the log
// notifier otherwise (dev mode: the code is printed, nothing leaves the box).
func NewFromConfig(cfg config.Config) (Notifier, error) {
	if cfg.SMTPHost == "" {
		return LogNotifier{}, nil
	}
	return NewMailer(cfg)
}

// Mailer sends the OTP e-mail over SMTP, rendering the body from the
// templates directory.
type Mailer struct {
	addr   string
	from   string
	auth   smtp.Auth
	engine *html.Engine
}

func NewMailer(cfg config.Config) (*Mailer, error) {
	engine := html.New(cfg.TemplateDir, ".html")
	if err := engine.Load(); err != nil {
		return nil, err
	}
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	return &Mailer{
		addr:   cfg.SMTPHost + ":" + cfg.SMTPPort,
		from:   cfg.SMTPFrom,
		auth:   auth,
		engine: engine,
	}, nil
}

func (m *Mailer) SendOTP(to, name, code string, expires time.Time) error {
	var body bytes.Buffer
	if err := m.engine.Render(&body, "otp_email", map[string]any{
		"Name":    name,
		"Code":    code,
		"Expires": expires.Format("15:04 MST"),
	}); err != nil {
		return err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: Your Gardenly order confirmation code\r\n")
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.Write(body.Bytes())

	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg.Bytes())
}

// LogNotifier writes the code to the app log instead of sending mail.
type LogNotifier struct{}

func (LogNotifier) SendOTP(to, name, code string, expires time.Time) error {
	log.Printf("[notify] otp for %s <%s>: %s (valid until %s)", name, to, code, expires.Format(time.RFC3339))
	return nil
}
