package repository

import (
	"testing"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepoTest(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createTestCompany(t *testing.T, testDB *gorm.DB, license string) *model.Company {
	company := &model.Company{
		Name:           "Test Company LLC",
		TradeLicenseNo: license,
		Email:          "info@company.ae",
		IndustryType:   model.IndustryTrading,
		CompanyType:    model.CompanyTypeLLC,
		Status:         model.CompanyStatusActive,
	}
	require.NoError(t, NewCompanyRepository(testDB).Create(company))
	return company
}
