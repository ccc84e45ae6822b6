// Package mailer provides Mailer adapters. Delivery is out of scope; the log
// mailer records that a message was produced without its body.
package mailer

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/target/folio/internal/ports"
)

// ErrInvalidRecipient is returned when To is not a single address.
var ErrInvalidRecipient = errors.New("invalid recipient address")

// LogMailer implements ports.Mailer by logging message metadata.
// Bodies carry reset and verification tokens and are never logged.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a LogMailer. A nil logger falls back to slog.Default().
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger.With("component", "mailer")}
}

// Send validates the recipient and logs the message envelope.
func (m *LogMailer) Send(ctx context.Context, msg ports.MailMessage) error {
	addr, err := mail.ParseAddress(msg.To)
	if err != nil {
		return errors.Join(ErrInvalidRecipient, err)
	}
	m.logger.InfoContext(ctx, "mail not delivered: no transport configured",
		"to_domain", domainOf(addr.Address),
		"subject", msg.Subject,
		"body_bytes", len(msg.Body),
	)
	return nil
}

func domainOf(address string) string {
	_, domain, _ := strings.Cut(address, "@")
	return domain
}

var _ ports.Mailer = (*LogMailer)(nil)
