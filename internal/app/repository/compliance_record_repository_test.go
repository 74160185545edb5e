package repository

import (
	"fmt"
	"testing"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplianceRecordRepository_FiltersAndDueCandidates(t *testing.T) {
	testDB := setupRepoTest(t)
	company := createTestCompany(t, testDB, "TL-400001")
	rules := NewComplianceRuleRepository(testDB)
	records := NewComplianceRecordRepository(testDB)

	vat := &model.ComplianceRule{Title: "VAT Return Filing", Category: model.CategoryTaxRegistration, Priority: model.PriorityHigh, FrequencyDays: 90}
	fire := &model.ComplianceRule{Title: "Fire Safety Inspection", Category: model.CategoryHealthSafety, Priority: model.PriorityMedium, FrequencyDays: 365}
	require.NoError(t, rules.Create(vat))
	require.NoError(t, rules.Create(fire))

	checked := model.MustParseDate("2025-03-01")
	compliant := &model.ComplianceRecord{CompanyID: company.ID, RuleID: vat.ID, Status: model.ComplianceStatusCompliant, LastCheckDate: checked}
	na := &model.ComplianceRecord{CompanyID: company.ID, RuleID: fire.ID, Status: model.ComplianceStatusNotApplicable, LastCheckDate: checked.AddDays(10)}
	require.NoError(t, records.Create(compliant))
	require.NoError(t, records.Create(na))

	category := model.CategoryTaxRegistration
	found, err := records.FindByCompany(company.ID, RecordFilter{Category: &category})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, compliant.ID, found[0].ID)
	require.NotNil(t, found[0].Rule)
	assert.Equal(t, "VAT Return Filing", found[0].Rule.Title)

	from, to := checked, checked.AddDays(5)
	found, err = records.FindByCompany(company.ID, RecordFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "2025-03-01", found[0].LastCheckDate.String())

	var due []model.ComplianceRecord
	err = records.FindDueCandidates(model.MustParseDate("2025-05-01"), model.MustParseDate("2025-06-30"), 100,
		func(batch []model.ComplianceRecord) error {
			due = append(due, batch...)
			return nil
		})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "2025-05-30", due[0].NextDueDate().String())

	all, err := rules.FindAll(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestComplianceRecordRepository_DueCandidatesInBatches(t *testing.T) {
	testDB := setupRepoTest(t)
	rules := NewComplianceRuleRepository(testDB)
	records := NewComplianceRecordRepository(testDB)

	vat := &model.ComplianceRule{Title: "VAT Return Filing", Category: model.CategoryTaxRegistration, Priority: model.PriorityHigh, FrequencyDays: 90}
	require.NoError(t, rules.Create(vat))

	var want []uint
	for i, checked := range []string{"2022-01-10", "2025-03-03", "2025-03-20", "2025-04-02", "2025-07-01"} {
		company := createTestCompany(t, testDB, fmt.Sprintf("TL-40010%d", i))
		record := &model.ComplianceRecord{CompanyID: company.ID, RuleID: vat.ID, Status: model.ComplianceStatusCompliant, LastCheckDate: model.MustParseDate(checked)}
		require.NoError(t, records.Create(record))
		if i >= 1 && i <= 3 {
			want = append(want, record.ID)
		}
	}

	var got []uint
	batches := 0
	err := records.FindDueCandidates(model.MustParseDate("2025-06-01"), model.MustParseDate("2025-07-01"), 2,
		func(batch []model.ComplianceRecord) error {
			batches++
			for _, r := range batch {
				require.NotNil(t, r.Rule)
				got = append(got, r.ID)
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, want, got, "stale checks and checks on or after the window end are not loaded")
	assert.Equal(t, 2, batches)
}

func TestComplianceRecordRepository_Checks(t *testing.T) {
	testDB := setupRepoTest(t)
	records := NewComplianceRecordRepository(testDB)

	from := model.ComplianceStatusInProgress
	require.NoError(t, records.CreateCheck(&model.ComplianceCheck{RecordID: 1, ToStatus: model.ComplianceStatusInProgress, CheckDate: model.MustParseDate("2025-01-01")}))
	require.NoError(t, records.CreateCheck(&model.ComplianceCheck{RecordID: 1, FromStatus: &from, ToStatus: model.ComplianceStatusCompliant, CheckDate: model.MustParseDate("2025-01-05")}))

	checks, err := records.FindChecks(1)
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.Nil(t, checks[0].FromStatus)
	assert.Equal(t, model.ComplianceStatusCompliant, checks[1].ToStatus)
}
