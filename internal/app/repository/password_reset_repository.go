package repository

import (
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"gorm.io/gorm"
)

type PasswordResetRepository interface {
	Create(reset *model.PasswordReset) error
	FindByTokenHash(tokenHash string) (*model.PasswordReset, error)
	MarkAsUsed(id uint, at time.Time) error
	DeleteExpired(before time.Time) (int64, error)
	WithTx(tx *gorm.DB) PasswordResetRepository
}

type passwordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) WithTx(tx *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: tx}
}

func (r *passwordResetRepository) Create(reset *model.PasswordReset) error {
	logger.Debug("Creating password reset in database", map[string]interface{}{
		"user_id": reset.UserID,
	})

	if err := r.db.Create(reset).Error; err != nil {
		logger.Error("Failed to create password reset in database", err, map[string]interface{}{
			"user_id": reset.UserID,
		})
		return err
	}
	return nil
}

func (r *passwordResetRepository) FindByTokenHash(tokenHash string) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	if err := r.db.Where("token_hash = ?", tokenHash).First(&reset).Error; err != nil {
		return nil, err
	}
	return &reset, nil
}

// MarkAsUsed consumes the grant. It reports gorm.ErrRecordNotFound when the
// grant was already used, so two concurrent resets cannot both succeed.
func (r *passwordResetRepository) MarkAsUsed(id uint, at time.Time) error {
	res := r.db.Model(&model.PasswordReset{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	if res.Error != nil {
		logger.Error("Failed to mark password reset as used in database", res.Error, map[string]interface{}{
			"id": id,
		})
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *passwordResetRepository) DeleteExpired(before time.Time) (int64, error) {
	result := r.db.Where("expires_at < ? OR used_at IS NOT NULL", before).Delete(&model.PasswordReset{})
	if result.Error != nil {
		logger.Error("Failed to delete expired password resets from database", result.Error, nil)
		return 0, result.Error
	}

	logger.Debug("Expired password resets deleted from database", map[string]interface{}{
		"count": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
