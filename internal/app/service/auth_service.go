package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/app/repository"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/internal/messaging"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"github.com/bizcomply/compliance-backend/pkg/redis"
	"github.com/bizcomply/compliance-backend/pkg/util"
	"gorm.io/gorm"
)

const appName = "BizComply"

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrTradeLicenseExists = errors.New("trade license already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// RegisterInput creates a company together with its first administrator.
type RegisterInput struct {
	Company RegisterCompanyInput `json:"company"`
	Admin   RegisterUserInput    `json:"admin"`
}

// UpdateProfileInput is a partial profile update.
type UpdateProfileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

// AuthConfig carries the token signing settings.
type AuthConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, *util.TokenPair, error)
	Login(email, password string) (*model.User, *util.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error)
	Logout(ctx context.Context, claims *util.Claims) error
	GetUserByID(id uint) (*model.User, error)
	UpdateProfile(userID uint, in UpdateProfileInput) (*model.User, error)
}

type authService struct {
	userRepo    repository.UserRepository
	companyRepo repository.CompanyRepository
	messenger   *messaging.Messenger
	clock       util.Clock
	db          *gorm.DB
	cfg         AuthConfig
}

func NewAuthService(
	userRepo repository.UserRepository,
	companyRepo repository.CompanyRepository,
	messenger *messaging.Messenger,
	clock util.Clock,
	db *gorm.DB,
	cfg AuthConfig,
) AuthService {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &authService{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		messenger:   messenger,
		clock:       clock,
		db:          db,
		cfg:         cfg,
	}
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	return util.GenerateTokenPair(util.TokenSubject{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Email:     user.Email,
		Role:      string(user.Role),
	}, s.cfg.Secret, s.cfg.AccessExpiry, s.cfg.RefreshExpiry)
}

// Register creates the company and its admin in one transaction, then sends
// a welcome email. A failed email does not undo the registration.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, *util.TokenPair, error) {
	if err := ValidateRegistration(in.Company); err != nil {
		return nil, nil, err
	}
	if err := ValidateRegistrationUser(in.Admin); err != nil {
		return nil, nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Admin.Email))
	logger.Info("Attempting company registration", map[string]interface{}{
		"email":            email,
		"trade_license_no": in.Company.TradeLicenseNo,
	})

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	if _, err := s.companyRepo.FindByTradeLicense(in.Company.TradeLicenseNo); err == nil {
		return nil, nil, ErrTradeLicenseExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	hashedPassword, err := util.HashPassword(in.Admin.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	company := &model.Company{
		Name:              strings.TrimSpace(in.Company.Name),
		TradeLicenseNo:    in.Company.TradeLicenseNo,
		TaxRegistrationNo: in.Company.TaxRegistrationNo,
		Address:           in.Company.Address,
		Phone:             in.Company.Phone,
		Email:             in.Company.Email,
		IndustryType:      model.IndustryType(in.Company.IndustryType),
		CompanyType:       model.CompanyType(in.Company.CompanyType),
		Status:            model.CompanyStatusActive,
	}
	user := &model.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(in.Admin.FirstName),
		LastName:     strings.TrimSpace(in.Admin.LastName),
		Phone:        in.Admin.Phone,
		Role:         model.RoleAdmin,
		Status:       model.UserStatusActive,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.companyRepo.WithTx(tx).Create(company); err != nil {
			return err
		}
		user.CompanyID = company.ID
		return s.userRepo.WithTx(tx).Create(user)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, ErrEmailAlreadyExists
		}
		logger.Error("Failed to register company", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, err
	}

	if s.messenger != nil {
		_, err := s.messenger.Send(ctx, messaging.Recipient{Name: user.FullName(), Email: user.Email}, messaging.TemplateWelcome, map[string]interface{}{
			"app_name":     appName,
			"company_name": company.Name,
		})
		if err != nil {
			logger.Warn("Failed to send welcome email", map[string]interface{}{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		}
	}

	user.Company = company
	logger.Info("Company registered successfully", map[string]interface{}{
		"company_id": company.ID,
		"user_id":    user.ID,
	})
	return user, tokens, nil
}

func (s *authService) Login(email, password string) (*model.User, *util.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, nil, ErrUserInactive
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, err
	}

	if err := s.userRepo.TouchLastLogin(user.ID, s.clock.Now()); err != nil {
		logger.Warn("Failed to record last login", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id":    user.ID,
		"company_id": user.CompanyID,
		"role":       user.Role,
	})
	return user, tokens, nil
}

// Refresh exchanges a refresh token for a new pair and revokes the old one.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.cfg.Secret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != util.TokenTypeRefresh {
		return nil, util.ErrInvalidToken
	}

	revoked, err := redis.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.NewDependency("redis", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	user, err := s.GetUserByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, ErrUserInactive
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	if err := redis.BlacklistToken(ctx, claims.ID, claims.RemainingTTL(s.clock.Now())); err != nil {
		logger.Warn("Failed to revoke used refresh token", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}
	return tokens, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *authService) Logout(ctx context.Context, claims *util.Claims) error {
	if claims == nil || claims.ID == "" {
		return util.ErrInvalidToken
	}
	if err := redis.BlacklistToken(ctx, claims.ID, claims.RemainingTTL(s.clock.Now())); err != nil {
		return apperrors.NewDependency("redis", err)
	}
	logger.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("User not found", map[string]interface{}{
				"user_id": id,
			})
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}

	company, err := s.companyRepo.FindByID(user.CompanyID)
	if err == nil {
		user.Company = company
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return user, nil
}

func (s *authService) UpdateProfile(userID uint, in UpdateProfileInput) (*model.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	updated := false
	if in.FirstName != nil {
		name := strings.TrimSpace(*in.FirstName)
		if name == "" {
			return nil, invalid("first_name", "First name is required")
		}
		if len(name) > 100 {
			return nil, invalid("first_name", "First name must not exceed 100 characters")
		}
		if name != user.FirstName {
			user.FirstName = name
			updated = true
		}
	}
	if in.LastName != nil {
		name := strings.TrimSpace(*in.LastName)
		if len(name) > 100 {
			return nil, invalid("last_name", "Last name must not exceed 100 characters")
		}
		if name != user.LastName {
			user.LastName = name
			updated = true
		}
	}
	if in.Phone != nil && *in.Phone != user.Phone {
		if *in.Phone != "" {
			if err := ValidatePhone(*in.Phone); err != nil {
				return nil, err
			}
		}
		user.Phone = *in.Phone
		updated = true
	}

	if !updated {
		logger.Debug("No changes detected for user profile", map[string]interface{}{
			"user_id": userID,
		})
		return user, nil
	}

	company := user.Company
	user.Company = nil
	if err := s.userRepo.Update(user); err != nil {
		logger.Error("Failed to update user profile", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	user.Company = company

	logger.Info("User profile updated successfully", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}
