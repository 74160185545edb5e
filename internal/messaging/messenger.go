package messaging

import (
	"context"
	"errors"
	"fmt"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

var ErrNoAddress = errors.New("recipient has no address for channel")

// Recipient is who a message goes to.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// Email is a rendered outbound email.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Result reports an accepted message.
type Result struct {
	Success bool    `json:"success"`
	ID      string  `json:"id"`
	Channel Channel `json:"channel"`
}

// EmailSender hands an email to a provider and returns its message id.
type EmailSender interface {
	SendEmail(ctx context.Context, email Email) (string, error)
}

// SMSSender hands a text message to a provider and returns its message id.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, text string) (string, error)
}

// Messenger renders templates and sends them. Failures are returned as
// errors and never retried here.
type Messenger struct {
	renderer *Renderer
	email    EmailSender
	sms      SMSSender
}

// NewMessenger wires the senders. sms may be nil when SMS is disabled.
func NewMessenger(renderer *Renderer, email EmailSender, sms SMSSender) *Messenger {
	return &Messenger{renderer: renderer, email: email, sms: sms}
}

// SMSEnabled reports whether an SMS sender is configured.
func (m *Messenger) SMSEnabled() bool {
	return m.sms != nil
}

// Send renders the template and emails it to the recipient.
func (m *Messenger) Send(ctx context.Context, to Recipient, template string, data map[string]interface{}) (Result, error) {
	if to.Email == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrNoAddress, ChannelEmail)
	}
	rendered, err := m.renderer.Render(template, withRecipient(to, data))
	if err != nil {
		return Result{}, err
	}
	id, err := m.email.SendEmail(ctx, Email{
		To:      to.Email,
		Subject: rendered.Subject,
		Text:    rendered.Text,
		HTML:    rendered.HTML,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, ID: id, Channel: ChannelEmail}, nil
}

// SendSMS renders the template's text body and texts it to the recipient.
func (m *Messenger) SendSMS(ctx context.Context, to Recipient, template string, data map[string]interface{}) (Result, error) {
	if m.sms == nil {
		return Result{}, errors.New("sms sender is not configured")
	}
	if to.Phone == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrNoAddress, ChannelSMS)
	}
	rendered, err := m.renderer.Render(template, withRecipient(to, data))
	if err != nil {
		return Result{}, err
	}
	id, err := m.sms.SendSMS(ctx, to.Phone, rendered.Text)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, ID: id, Channel: ChannelSMS}, nil
}

func withRecipient(to Recipient, data map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(data)+2)
	merged["user_name"] = to.Name
	merged["name"] = to.Name
	for k, v := range data {
		merged[k] = v
	}
	return merged
}
