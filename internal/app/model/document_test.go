package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentEffectiveStatus(t *testing.T) {
	today := MustParseDate("2025-03-10")
	past := today.AddDays(-1)
	future := today.AddDays(5)

	tests := []struct {
		name   string
		doc    Document
		expect DocumentStatus
	}{
		{"Active without expiry", Document{Status: DocumentStatusActive}, DocumentStatusActive},
		{"Active expiring today", Document{Status: DocumentStatusActive, ExpiryDate: &today}, DocumentStatusActive},
		{"Active in the future", Document{Status: DocumentStatusActive, ExpiryDate: &future}, DocumentStatusActive},
		{"Active past expiry", Document{Status: DocumentStatusActive, ExpiryDate: &past}, DocumentStatusExpired},
		{"Archived past expiry", Document{Status: DocumentStatusArchived, ExpiryDate: &past}, DocumentStatusArchived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.doc.EffectiveStatus(today))
		})
	}
}

func TestComplianceRecordNextDueDate(t *testing.T) {
	record := ComplianceRecord{LastCheckDate: MustParseDate("2025-01-01")}
	assert.True(t, record.NextDueDate().IsZero())

	record.Rule = &ComplianceRule{FrequencyDays: 90}
	assert.Equal(t, "2025-04-01", record.NextDueDate().String())
}

func TestNotificationSettingsWants(t *testing.T) {
	settings := DefaultNotificationSettings(1)
	assert.True(t, settings.Wants(NotificationTypeDocumentExpiring))
	assert.True(t, settings.EmailEnabled)
	assert.False(t, settings.SMSEnabled)

	settings.ComplianceDue = false
	assert.False(t, settings.Wants(NotificationTypeComplianceDue))
	assert.False(t, settings.Wants(NotificationType("unknown")))
}
