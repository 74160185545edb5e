package service

import (
	"errors"
	"strings"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/app/repository"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"gorm.io/gorm"
)

type CompanyService interface {
	GetCompany(rc RequestContext) (*model.Company, error)
	UpdateCompany(rc RequestContext, in UpdateCompanyInput) (*model.Company, error)
	UpdateStatus(rc RequestContext, status string) (*model.Company, error)
}

type companyService struct {
	companyRepo repository.CompanyRepository
}

func NewCompanyService(companyRepo repository.CompanyRepository) CompanyService {
	return &companyService{companyRepo: companyRepo}
}

func companyNotFound(id uint) error {
	return &apperrors.NotFoundError{Resource: "company", ID: id, Code: apperrors.CompanyNotFound}
}

func (s *companyService) GetCompany(rc RequestContext) (*model.Company, error) {
	company, err := s.companyRepo.FindByID(rc.CompanyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, companyNotFound(rc.CompanyID)
		}
		return nil, err
	}
	return company, nil
}

// UpdateCompany validates every supplied field before changing any.
func (s *companyService) UpdateCompany(rc RequestContext, in UpdateCompanyInput) (*model.Company, error) {
	if err := ValidateCompanyUpdate(in); err != nil {
		return nil, err
	}
	company, err := s.GetCompany(rc)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		company.Name = strings.TrimSpace(*in.Name)
	}
	if in.TaxRegistrationNo != nil {
		company.TaxRegistrationNo = *in.TaxRegistrationNo
	}
	if in.Address != nil {
		company.Address = *in.Address
	}
	if in.Phone != nil {
		company.Phone = *in.Phone
	}
	if in.Email != nil {
		company.Email = *in.Email
	}
	if in.IndustryType != nil {
		company.IndustryType = model.IndustryType(*in.IndustryType)
	}
	if in.CompanyType != nil {
		company.CompanyType = model.CompanyType(*in.CompanyType)
	}

	if err := s.companyRepo.Update(company); err != nil {
		logger.Error("Failed to update company", err, map[string]interface{}{
			"company_id": company.ID,
		})
		return nil, err
	}

	logger.Info("Company updated", map[string]interface{}{
		"company_id": company.ID,
		"user_id":    rc.UserID,
	})
	return company, nil
}

func (s *companyService) UpdateStatus(rc RequestContext, status string) (*model.Company, error) {
	newStatus, err := ValidateCompanyStatus(status)
	if err != nil {
		return nil, err
	}
	company, err := s.GetCompany(rc)
	if err != nil {
		return nil, err
	}
	if company.Status == newStatus {
		return company, nil
	}

	previous := company.Status
	company.Status = newStatus
	if err := s.companyRepo.Update(company); err != nil {
		return nil, err
	}

	logger.Info("Company status changed", map[string]interface{}{
		"company_id": company.ID,
		"from":       previous,
		"to":         newStatus,
		"user_id":    rc.UserID,
	})
	return company, nil
}
