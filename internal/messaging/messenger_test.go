package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	input *ses.SendEmailInput
	err   error
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-123")}, nil
}

type mockSNS struct {
	input *sns.PublishInput
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.input = params
	return &sns.PublishOutput{MessageId: aws.String("sns-456")}, nil
}

func TestRenderer_DocumentExpiring(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render(TemplateDocumentExpiring, map[string]interface{}{
		"user_name":    "Layla",
		"title":        "Trade License",
		"type":         "license",
		"expiry_date":  "2025-07-01",
		"company_name": "Test Company LLC",
	})
	require.NoError(t, err)
	assert.Equal(t, "Document expiring: Trade License", out.Subject)
	assert.Contains(t, out.Text, "2025-07-01")
	assert.Contains(t, out.HTML, "<strong>Trade License</strong>")
}

func TestRenderer_EscapesHTML(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render(TemplateNotification, map[string]interface{}{
		"user_name":       "Test User",
		"company_name":    "<script>alert(1)</script>",
		"action_required": "Document Update",
	})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "Document Update")
	assert.NotContains(t, out.HTML, "<script>")
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	_, err := NewRenderer().Render("no_such_template", nil)
	assert.Error(t, err)
}

func TestMessenger_SendThroughMemorySender(t *testing.T) {
	sender := NewMemorySender()
	m := NewMessenger(NewRenderer(), sender, sender)

	res, err := m.Send(context.Background(), Recipient{Name: "New User", Email: "newuser@example.com"}, TemplateWelcome, map[string]interface{}{
		"app_name":     "Compliance Tracker",
		"company_name": "Test Company LLC",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, ChannelEmail, res.Channel)

	sent := sender.SentTo("newuser@example.com")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Subject, "Welcome")
	assert.Contains(t, sent[0].Body, "New User")

	_, err = m.Send(context.Background(), Recipient{Name: "No Mail"}, TemplateWelcome, nil)
	assert.ErrorIs(t, err, ErrNoAddress)

	sender.FailWith(errors.New("provider down"))
	_, err = m.Send(context.Background(), Recipient{Email: "a@example.com"}, TemplateBulk, map[string]interface{}{"subject": "s", "message": "m"})
	assert.EqualError(t, err, "provider down")
}

func TestSESSender(t *testing.T) {
	client := &mockSES{}
	s := NewSESSenderWithClient(client, "no-reply@example.com", "Compliance Tracker")

	id, err := s.SendEmail(context.Background(), Email{To: "a@example.com", Subject: "Hi", Text: "t", HTML: "<p>h</p>"})
	require.NoError(t, err)
	assert.Equal(t, "ses-123", id)
	assert.Equal(t, "Compliance Tracker <no-reply@example.com>", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"a@example.com"}, client.input.Destination.ToAddresses)

	client.err = errors.New("throttled")
	_, err = s.SendEmail(context.Background(), Email{To: "a@example.com"})
	assert.ErrorContains(t, err, "throttled")
}

func TestSNSSender(t *testing.T) {
	client := &mockSNS{}
	m := NewMessenger(NewRenderer(), NewMemorySender(), NewSNSSenderWithClient(client))

	res, err := m.SendSMS(context.Background(), Recipient{Phone: "+971501234567"}, TemplateComplianceDue, map[string]interface{}{
		"rule_title": "VAT Return Filing",
		"due_date":   "2025-04-28",
		"priority":   "high",
	})
	require.NoError(t, err)
	assert.Equal(t, "sns-456", res.ID)
	assert.Equal(t, "+971501234567", aws.ToString(client.input.PhoneNumber))
	assert.Contains(t, aws.ToString(client.input.Message), "VAT Return Filing")
}
