package auth

import (
	"context"
	"sync"

	"github.com/target/folio/internal/ports"
)

var _ ports.Mailer = (*RecordingMailer)(nil)

// RecordingMailer appends every message to Sent, or fails with Err when set.
type RecordingMailer struct {
	Err error

	mu   sync.Mutex
	Sent []ports.MailMessage
}

func (m *RecordingMailer) Send(_ context.Context, msg ports.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// Last returns the newest message.
func (m *RecordingMailer) Last() (ports.MailMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return ports.MailMessage{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}
