package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"

	"taskflow/internal/config"
)

// Template names shipped with the service.
const (
	TemplateEmailVerification = "emailVerification"
	TemplateForgotPassword    = "forgotPassword"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a templated email addressed to one recipient.
type Message struct {
	Subject       string
	To            string
	From          string
	Template      string
	RecipientName string
	ActionURL     string
}

// Sender delivers templated emails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Render executes the message template into HTML.
func Render(msg Message) (string, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, msg.Template+".html", struct {
		Name string
		URL  string
	}{Name: msg.RecipientName, URL: msg.ActionURL})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}

func plainText(msg Message) string {
	return fmt.Sprintf("Hello %s,\n\n%s\n\n%s\n", msg.RecipientName, msg.Subject, msg.ActionURL)
}

// NewSender returns the sender selected by cfg.Provider.
func NewSender(cfg config.Mail, log logrus.FieldLogger) (Sender, error) {
	switch cfg.Provider {
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			return nil, fmt.Errorf("invalid Mailgun configuration")
		}
		return NewMailgunSender(cfg.MailgunDomain, cfg.MailgunAPIKey, log), nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("invalid SendGrid configuration")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, log), nil
	case "smtp":
		if cfg.SMTPHost == "" || cfg.SMTPPort == "" {
			return nil, fmt.Errorf("invalid SMTP configuration")
		}
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, log), nil
	case "log", "":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// LogSender renders the message and writes it to the log instead of sending it.
// Intended for local development.
type LogSender struct {
	log logrus.FieldLogger
}

// NewLogSender creates a LogSender.
func NewLogSender(log logrus.FieldLogger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if _, err := Render(msg); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"to":       msg.To,
		"subject":  msg.Subject,
		"template": msg.Template,
		"url":      msg.ActionURL,
	}).Info("email not sent, log provider active")
	return nil
}
