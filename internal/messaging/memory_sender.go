package messaging

import (
	"context"
	"fmt"
	"sync"
)

// SentMessage is a message captured by MemorySender.
type SentMessage struct {
	ID      string
	Channel Channel
	To      string
	Subject string
	Body    string
}

// MemorySender records messages instead of sending them. It backs the
// "memory" mail driver in development and the tests.
type MemorySender struct {
	mu   sync.Mutex
	sent []SentMessage
	fail error
	seq  int
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

// FailWith makes every following send return err. Pass nil to recover.
func (m *MemorySender) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *MemorySender) SendEmail(ctx context.Context, email Email) (string, error) {
	return m.record(ChannelEmail, email.To, email.Subject, email.Text+"\n"+email.HTML)
}

func (m *MemorySender) SendSMS(ctx context.Context, phone, text string) (string, error) {
	return m.record(ChannelSMS, phone, "", text)
}

func (m *MemorySender) record(channel Channel, to, subject, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", m.fail
	}
	m.seq++
	id := fmt.Sprintf("mem-%d", m.seq)
	m.sent = append(m.sent, SentMessage{ID: id, Channel: channel, To: to, Subject: subject, Body: body})
	return id, nil
}

// Sent returns a copy of everything recorded so far.
func (m *MemorySender) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentTo returns the messages addressed to one recipient.
func (m *MemorySender) SentTo(to string) []SentMessage {
	var out []SentMessage
	for _, msg := range m.Sent() {
		if msg.To == to {
			out = append(out, msg)
		}
	}
	return out
}

func (m *MemorySender) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
