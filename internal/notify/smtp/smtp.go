// Package smtp delivers operator notifications over authenticated SMTP.
package smtp

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/JakeFAU/narration-leads/internal/lead"
	"github.com/JakeFAU/narration-leads/internal/notify"
)

// Config holds the mail transport settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	To       string
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Notifier sends one message per lead to a fixed operator mailbox.
type Notifier struct {
	cfg    Config
	client sender
}

// New builds an SMTP client that requires STARTTLS and PLAIN auth.
func New(cfg Config) (*Notifier, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: smtp username and password", lead.ErrConfigurationMissing)
	}
	if cfg.To == "" {
		return nil, fmt.Errorf("smtp recipient is required")
	}
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &Notifier{cfg: cfg, client: client}, nil
}

func newWithSender(cfg Config, s sender) *Notifier {
	return &Notifier{cfg: cfg, client: s}
}

// Message renders the mail for rec without sending it.
func (n *Notifier) Message(rec lead.Record) (*mail.Msg, error) {
	email, err := notify.Compose(rec)
	if err != nil {
		return nil, err
	}
	msg := mail.NewMsg()
	if err := msg.FromFormat(n.cfg.FromName, n.cfg.Username); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(n.cfg.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	if err := msg.ReplyTo(rec.ContactEmail()); err != nil {
		return nil, fmt.Errorf("set reply-to: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Body)
	return msg, nil
}

// Notify implements lead.Notifier.
func (n *Notifier) Notify(ctx context.Context, rec lead.Record) error {
	msg, err := n.Message(rec)
	if err != nil {
		return err
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
