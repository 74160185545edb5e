package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/pkg/util"
	"github.com/go-playground/validator/v10"
)

var (
	tradeLicensePattern = regexp.MustCompile(`^[A-Z]{2,3}-\d{6}$`)
	uaePhonePattern     = regexp.MustCompile(`^\+971\d{8,9}$`)

	companyValidator     *validator.Validate
	companyValidatorOnce sync.Once
)

// RegisterCompanyInput is the company half of a registration.
type RegisterCompanyInput struct {
	Name              string `json:"name" validate:"required,max=255"`
	TradeLicenseNo    string `json:"trade_license_no" validate:"required,trade_license"`
	TaxRegistrationNo string `json:"tax_registration_no" validate:"omitempty,max=50"`
	Address           string `json:"address"`
	Phone             string `json:"phone" validate:"required,uae_phone"`
	Email             string `json:"email" validate:"required,email"`
	IndustryType      string `json:"industry_type" validate:"required,industry_type"`
	CompanyType       string `json:"company_type" validate:"required,company_type"`
}

// UpdateCompanyInput is a partial company update.
type UpdateCompanyInput struct {
	Name              *string `json:"name" validate:"omitempty,min=1,max=255"`
	TaxRegistrationNo *string `json:"tax_registration_no" validate:"omitempty,max=50"`
	Address           *string `json:"address"`
	Phone             *string `json:"phone" validate:"omitempty,uae_phone"`
	Email             *string `json:"email" validate:"omitempty,email"`
	IndustryType      *string `json:"industry_type" validate:"omitempty,industry_type"`
	CompanyType       *string `json:"company_type" validate:"omitempty,company_type"`
}

// RegisterUserInput is the administrator created alongside a company.
type RegisterUserInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Phone     string `json:"phone" validate:"omitempty,uae_phone"`
}

func (in UpdateCompanyInput) empty() bool {
	return in.Name == nil && in.TaxRegistrationNo == nil && in.Address == nil && in.Phone == nil &&
		in.Email == nil && in.IndustryType == nil && in.CompanyType == nil
}

// fieldMessages maps json field name and failed tag to the caller message.
var fieldMessages = map[string]map[string]string{
	"name": {
		"required": "Company name is required",
		"min":      "Company name is required",
		"max":      "Company name must not exceed 255 characters",
	},
	"trade_license_no": {
		"required":      "Trade license number is required",
		"trade_license": "Invalid trade license format (expected e.g. TL-123456)",
	},
	"tax_registration_no": {
		"max": "Tax registration number must not exceed 50 characters",
	},
	"phone": {
		"required":  "Phone number is required",
		"uae_phone": "Invalid phone number format (expected +971 followed by 8 or 9 digits)",
	},
	"email": {
		"required": "Email is required",
		"email":    "Invalid email address",
	},
	"industry_type": {
		"required":      "Industry type is required",
		"industry_type": "Invalid industry type",
	},
	"company_type": {
		"required":     "Company type is required",
		"company_type": "Invalid company type",
	},
	"first_name": {
		"required": "First name is required",
		"max":      "First name must not exceed 100 characters",
	},
	"last_name": {
		"max": "Last name must not exceed 100 characters",
	},
	"password": {
		"required": "Password is required",
	},
}

func getCompanyValidator() *validator.Validate {
	companyValidatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("trade_license", func(fl validator.FieldLevel) bool {
			return tradeLicensePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("uae_phone", func(fl validator.FieldLevel) bool {
			return uaePhonePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("industry_type", func(fl validator.FieldLevel) bool {
			return isIndustryType(fl.Field().String())
		})
		_ = v.RegisterValidation("company_type", func(fl validator.FieldLevel) bool {
			return isCompanyType(fl.Field().String())
		})
		companyValidator = v
	})
	return companyValidator
}

// translate turns the first validator failure into a ValidationError.
// Single-value checks carry no field name, so callers pass one.
func translate(err error, field ...string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	name := fe.Field()
	if len(field) > 0 {
		name = field[0]
	}
	if msg, ok := fieldMessages[name][fe.Tag()]; ok {
		return invalid(name, msg)
	}
	return invalid(name, name+" is invalid")
}

// ValidateRegistration checks a company registration payload.
func ValidateRegistration(in RegisterCompanyInput) error {
	if in == (RegisterCompanyInput{}) {
		return invalid("", "Company data is required")
	}
	return translate(getCompanyValidator().Struct(in))
}

// ValidateRegistrationUser checks the administrator half of a registration.
func ValidateRegistrationUser(in RegisterUserInput) error {
	if err := translate(getCompanyValidator().Struct(in)); err != nil {
		return err
	}
	if err := util.CheckPasswordStrength(in.Password); err != nil {
		return invalidWithCode("password", "Password must be at least 8 characters and contain a letter and a digit", apperrors.ValidationInvalidFormat)
	}
	return nil
}

// ValidateCompanyUpdate checks a partial company update.
func ValidateCompanyUpdate(in UpdateCompanyInput) error {
	if in.empty() {
		return invalid("", "Update data is required")
	}
	return translate(getCompanyValidator().Struct(in))
}

// ValidateTradeLicense checks a trade license number on its own.
func ValidateTradeLicense(v string) error {
	return translate(getCompanyValidator().Var(v, "required,trade_license"), "trade_license_no")
}

// ValidatePhone checks a UAE phone number on its own.
func ValidatePhone(v string) error {
	return translate(getCompanyValidator().Var(v, "required,uae_phone"), "phone")
}

// ValidateCompanyType checks a company type on its own.
func ValidateCompanyType(v string) error {
	return translate(getCompanyValidator().Var(v, "required,company_type"), "company_type")
}

// ValidateIndustryType checks an industry type on its own.
func ValidateIndustryType(v string) error {
	return translate(getCompanyValidator().Var(v, "required,industry_type"), "industry_type")
}

// ValidateCompanyStatus checks a company status.
func ValidateCompanyStatus(v string) (model.CompanyStatus, error) {
	if v == "" {
		return "", invalid("status", "Status is required")
	}
	for _, s := range model.CompanyStatuses {
		if string(s) == v {
			return s, nil
		}
	}
	return "", invalid("status", "Invalid company status")
}

func isIndustryType(v string) bool {
	for _, t := range model.IndustryTypes {
		if string(t) == v {
			return true
		}
	}
	return false
}

func isCompanyType(v string) bool {
	for _, t := range model.CompanyTypes {
		if string(t) == v {
			return true
		}
	}
	return false
}
