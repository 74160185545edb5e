package repository

import (
	"testing"
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*gorm.DB, UserRepository, *model.Company) {
	testDB := setupRepoTest(t)
	company := createTestCompany(t, testDB, "TL-100001")
	return testDB, NewUserRepository(testDB), company
}

func newTestUser(companyID uint, email string) *model.User {
	return &model.User{
		CompanyID:    companyID,
		Email:        email,
		PasswordHash: "hashedpassword",
		FirstName:    "Test",
		LastName:     "User",
		Phone:        "+971501234567",
		Role:         model.RoleUser,
		Status:       model.UserStatusActive,
	}
}

func TestUserRepository_Create(t *testing.T) {
	_, repo, company := setupUserTest(t)

	tests := []struct {
		name    string
		user    *model.User
		wantErr bool
	}{
		{
			name:    "Valid user",
			user:    newTestUser(company.ID, "test@example.com"),
			wantErr: false,
		},
		{
			name:    "Duplicate email",
			user:    newTestUser(company.ID, "test@example.com"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(tt.user)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.NotZero(t, tt.user.ID)
			}
		})
	}
}

func TestUserRepository_FindByID(t *testing.T) {
	_, repo, company := setupUserTest(t)

	user := newTestUser(company.ID, "test@example.com")
	require.NoError(t, repo.Create(user))

	tests := []struct {
		name    string
		id      uint
		wantErr bool
	}{
		{name: "Existing user", id: user.ID},
		{name: "Non-existing user", id: 9999, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := repo.FindByID(tt.id)

			if tt.wantErr {
				assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
				assert.Nil(t, found)
			} else {
				require.NoError(t, err)
				assert.Equal(t, user.Email, found.Email)
				assert.Equal(t, "Test User", found.FullName())
			}
		})
	}
}

func TestUserRepository_FindByEmail(t *testing.T) {
	_, repo, company := setupUserTest(t)

	user := newTestUser(company.ID, "test@example.com")
	require.NoError(t, repo.Create(user))

	found, err := repo.FindByEmail("test@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByEmail("notfound@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_FindActiveByCompany(t *testing.T) {
	testDB, repo, company := setupUserTest(t)
	other := createTestCompany(t, testDB, "LLC-200002")

	active := newTestUser(company.ID, "active@example.com")
	inactive := newTestUser(company.ID, "inactive@example.com")
	inactive.Status = model.UserStatusInactive
	foreign := newTestUser(other.ID, "other@example.com")
	for _, u := range []*model.User{active, inactive, foreign} {
		require.NoError(t, repo.Create(u))
	}

	users, err := repo.FindActiveByCompany(company.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, active.ID, users[0].ID)
}

func TestUserRepository_UpdateAndTouchLastLogin(t *testing.T) {
	_, repo, company := setupUserTest(t)

	user := newTestUser(company.ID, "test@example.com")
	require.NoError(t, repo.Create(user))

	user.FirstName = "Updated"
	user.Phone = "+971559876543"
	require.NoError(t, repo.Update(user))

	loginAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.TouchLastLogin(user.ID, loginAt))

	updated, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.FirstName)
	assert.Equal(t, "+971559876543", updated.Phone)
	require.NotNil(t, updated.LastLoginAt)
	assert.True(t, loginAt.Equal(*updated.LastLoginAt))
}

func TestUserRepository_Delete(t *testing.T) {
	_, repo, company := setupUserTest(t)

	user := newTestUser(company.ID, "test@example.com")
	require.NoError(t, repo.Create(user))

	require.NoError(t, repo.Delete(user.ID))

	_, err := repo.FindByID(user.ID)
	assert.Error(t, err)
}
