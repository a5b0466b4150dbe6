package mail

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

const sendTimeout = 30 * time.Second

// MailgunSender sends through the Mailgun API.
type MailgunSender struct {
	mg  *mailgun.MailgunImpl
	log logrus.FieldLogger
}

// NewMailgunSender creates a Mailgun sender for domain.
func NewMailgunSender(domain, apiKey string, log logrus.FieldLogger) *MailgunSender {
	return &MailgunSender{mg: mailgun.NewMailgun(domain, apiKey), log: log}
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	html, err := Render(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	message := s.mg.NewMessage(msg.From, msg.Subject, plainText(msg), msg.To)
	message.SetHtml(html)

	_, id, err := s.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	s.log.WithFields(logrus.Fields{"to": msg.To, "id": id}).Info("email queued")
	return nil
}

// SendGridSender sends through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	log    logrus.FieldLogger
}

// NewSendGridSender creates a SendGrid sender.
func NewSendGridSender(apiKey string, log logrus.FieldLogger) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), log: log}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	html, err := Render(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	from := sgmail.NewEmail("", msg.From)
	to := sgmail.NewEmail(msg.RecipientName, msg.To)
	message := sgmail.NewSingleEmail(from, msg.Subject, to, plainText(msg), html)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sendgrid send: unexpected status %d", resp.StatusCode)
	}
	s.log.WithFields(logrus.Fields{"to": msg.To, "status": resp.StatusCode}).Info("email sent")
	return nil
}

// SMTPSender sends through a plain SMTP relay.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	log  logrus.FieldLogger

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates an SMTP sender. Authentication is skipped when username is empty.
func NewSMTPSender(host, port, username, password string, log logrus.FieldLogger) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr:     host + ":" + port,
		auth:     auth,
		log:      log,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	html, err := Render(msg)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(html)

	if err := s.sendMail(s.addr, s.auth, msg.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	s.log.WithField("to", msg.To).Info("email sent")
	return nil
}
