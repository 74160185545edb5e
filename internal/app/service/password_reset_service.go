package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/app/repository"
	"github.com/bizcomply/compliance-backend/internal/messaging"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"github.com/bizcomply/compliance-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	ErrResetTokenExpired = errors.New("reset token has expired")
	ErrResetTokenUsed    = errors.New("reset token has already been used")
)

const (
	// ResetTokenExpiry is the duration for which a reset token is valid
	ResetTokenExpiry = 1 * time.Hour
	// ResetTokenLength is the byte length of the reset token
	ResetTokenLength = 32
)

type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(token, newPassword string) error
	PurgeExpired() (int64, error)
}

type passwordResetService struct {
	resetRepo repository.PasswordResetRepository
	userRepo  repository.UserRepository
	messenger *messaging.Messenger
	clock     util.Clock
	db        *gorm.DB
}

func NewPasswordResetService(
	resetRepo repository.PasswordResetRepository,
	userRepo repository.UserRepository,
	messenger *messaging.Messenger,
	clock util.Clock,
	db *gorm.DB,
) PasswordResetService {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &passwordResetService{
		resetRepo: resetRepo,
		userRepo:  userRepo,
		messenger: messenger,
		clock:     clock,
		db:        db,
	}
}

func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	logger.Info("Processing password reset request", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown addresses succeed silently to prevent user enumeration
			logger.Warn("Password reset requested for non-existent email", map[string]interface{}{
				"email": email,
			})
			return nil
		}
		logger.Error("Failed to find user for password reset", err, map[string]interface{}{
			"email": email,
		})
		return err
	}
	if !user.IsActive() {
		logger.Warn("Password reset requested for inactive user", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		logger.Error("Failed to generate reset token", err, map[string]interface{}{
			"email": email,
		})
		return err
	}

	reset := &model.PasswordReset{
		UserID:    user.ID,
		TokenHash: hashResetToken(token),
		ExpiresAt: s.clock.Now().Add(ResetTokenExpiry),
	}
	if err := s.resetRepo.Create(reset); err != nil {
		return err
	}

	result, err := s.messenger.Send(ctx, messaging.Recipient{Name: user.FullName(), Email: user.Email},
		messaging.TemplatePasswordReset, map[string]interface{}{
			"reset_token": token,
			"expires_in":  ResetTokenExpiry.String(),
		})
	if err != nil {
		logger.Error("Failed to send password reset email", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}

	logger.Info("Password reset email sent", map[string]interface{}{
		"user_id":    user.ID,
		"message_id": result.ID,
		"expires_at": reset.ExpiresAt,
	})
	return nil
}

func (s *passwordResetService) ResetPassword(token, newPassword string) error {
	if err := util.CheckPasswordStrength(newPassword); err != nil {
		return err
	}

	reset, err := s.resetRepo.FindByTokenHash(hashResetToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Invalid reset token provided")
			return ErrInvalidResetToken
		}
		logger.Error("Failed to find reset record", err)
		return err
	}

	if reset.Used() {
		logger.Warn("Reset token has already been used", map[string]interface{}{
			"user_id": reset.UserID,
		})
		return ErrResetTokenUsed
	}
	if s.clock.Now().After(reset.ExpiresAt) {
		logger.Warn("Reset token has expired", map[string]interface{}{
			"user_id":    reset.UserID,
			"expires_at": reset.ExpiresAt,
		})
		return ErrResetTokenExpired
	}

	hashedPassword, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}

	// Consuming the grant and changing the password commit together
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.resetRepo.WithTx(tx).MarkAsUsed(reset.ID, s.clock.Now()); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResetTokenUsed
			}
			return err
		}

		user, err := s.userRepo.WithTx(tx).FindByID(reset.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}
		user.PasswordHash = hashedPassword
		if err := s.userRepo.WithTx(tx).Update(user); err != nil {
			logger.Error("Failed to update user password", err, map[string]interface{}{
				"user_id": user.ID,
			})
			return err
		}

		logger.Info("Password reset successful", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	})
}

// PurgeExpired removes used and expired grants.
func (s *passwordResetService) PurgeExpired() (int64, error) {
	return s.resetRepo.DeleteExpired(s.clock.Now())
}

// generateResetToken creates a cryptographically secure random token
func generateResetToken() (string, error) {
	bytes := make([]byte, ResetTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
