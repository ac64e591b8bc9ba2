package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
)

// ErrNoCredentials indicates the SMTP username or password was not
// configured. Callers treat this as a non-fatal, logged condition.
var ErrNoCredentials = errors.New("email credentials are not configured")

const defaultSMTPPort = 587

// Message is a single HTML-bodied email.
type Message struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
}

// Sender sends a single message over a mail transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends messages through an authenticated SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

// NewSMTPMailer returns an SMTPMailer for the given relay host and
// account credentials.
func NewSMTPMailer(host string, username string, password string) *SMTPMailer {
	return &SMTPMailer{
		Host:     host,
		Port:     defaultSMTPPort,
		Username: username,
		Password: password,
	}
}

// Send delivers the message over SMTP with STARTTLS and plain auth.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {

	if m.Username == "" || m.Password == "" {
		return ErrNoCredentials
	}

	mailMsg := mail.NewMsg()
	if err := mailMsg.From(msg.From); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", msg.From, err)
	}
	if err := mailMsg.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}
	mailMsg.Subject(msg.Subject)
	mailMsg.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)

	client, err := mail.NewClient(m.Host,
		mail.WithPort(m.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.Username),
		mail.WithPassword(m.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("unable to create smtp client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, mailMsg)
}
