package repository

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotification(companyID, userID, subjectID uint, createdAt time.Time) *model.Notification {
	return &model.Notification{
		CompanyID:      companyID,
		UserID:         userID,
		Type:           model.NotificationTypeDocumentExpiring,
		SubjectType:    model.SubjectDocument,
		SubjectID:      subjectID,
		Title:          "Document expiring",
		Message:        "Trade License expires soon",
		Priority:       model.PriorityHigh,
		DeliveryStatus: model.DeliveryPending,
		CreatedAt:      createdAt,
	}
}

func TestNotificationRepository_CreateIfAbsent(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewNotificationRepository(testDB)
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

	created, err := repo.CreateIfAbsent(newTestNotification(1, 1, 10, now))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(newTestNotification(1, 1, 10, now))
	require.NoError(t, err)
	assert.False(t, created)

	// Different user, same subject
	created, err = repo.CreateIfAbsent(newTestNotification(1, 2, 10, now))
	require.NoError(t, err)
	assert.True(t, created)

	count, err := repo.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNotificationRepository_CreateIfAbsent_Concurrent(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewNotificationRepository(testDB)
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

	const workers = 16
	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.CreateIfAbsent(newTestNotification(1, 1, 10, now))
			if err != nil {
				errs <- err
				return
			}
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), created.Load())

	var rows int64
	require.NoError(t, testDB.Model(&model.Notification{}).
		Where("company_id = ? AND user_id = ? AND subject_id = ?", 1, 1, 10).
		Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestNotificationRepository_ExistsSince(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewNotificationRepository(testDB)
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

	n := newTestNotification(1, 1, 10, now)
	_, err := repo.CreateIfAbsent(n)
	require.NoError(t, err)
	require.NoError(t, repo.MarkAsRead(n.ID, now))

	exists, err := repo.ExistsSince(newTestNotification(1, 1, 10, now), now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsSince(newTestNotification(1, 1, 10, now), now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNotificationRepository_ReadStateAndDelivery(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewNotificationRepository(testDB)
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

	first := newTestNotification(1, 1, 10, now)
	second := newTestNotification(1, 1, 11, now.Add(time.Minute))
	for _, n := range []*model.Notification{first, second} {
		_, err := repo.CreateIfAbsent(n)
		require.NoError(t, err)
	}

	unread := false
	list, total, err := repo.GetNotifications(1, NotificationFilter{IsRead: &unread})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, second.ID, list[0].ID)

	require.NoError(t, repo.UpdateDelivery(first.ID, model.DeliveryFailed, "smtp down", now))
	stored, err := repo.GetNotificationByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryFailed, stored.DeliveryStatus)
	assert.Equal(t, "smtp down", stored.DeliveryError)

	marked, err := repo.MarkAllAsRead(1, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	count, err := repo.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, repo.DeleteNotification(first.ID))
	_, err = repo.GetNotificationByID(first.ID)
	assert.Error(t, err)
}

func TestNotificationRepository_SettingsDefaults(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewNotificationRepository(testDB)

	settings, err := repo.GetNotificationSettings(5)
	require.NoError(t, err)
	assert.True(t, settings.EmailEnabled)
	assert.False(t, settings.SMSEnabled)

	settings.EmailEnabled = false
	settings.ComplianceDue = false
	require.NoError(t, repo.UpdateNotificationSettings(settings))

	reloaded, err := repo.GetNotificationSettings(5)
	require.NoError(t, err)
	assert.False(t, reloaded.EmailEnabled)
	assert.False(t, reloaded.ComplianceDue)
	assert.True(t, reloaded.DocumentExpiring)
}
