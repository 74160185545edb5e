package db

import (
	"fmt"
	"strings"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrationsList is applied in order. New schema changes append a migration;
// existing ones are never edited once released.
var migrationsList = []*gormigrate.Migration{
	{
		ID: "202501010001_create_core_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&model.Company{},
				&model.User{},
				&model.ComplianceRule{},
				&model.ComplianceRecord{},
				&model.ComplianceCheck{},
				&model.Document{},
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				"documents", "compliance_checks", "compliance_records",
				"compliance_rules", "users", "companies",
			)
		},
	},
	{
		ID: "202501010002_create_notification_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.Notification{}, &model.NotificationSettings{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("notification_settings", "notifications")
		},
	},
	{
		// At most one unread notification per dedup tuple. Inserts use
		// ON CONFLICT DO NOTHING against this index.
		ID: "202501010003_notification_dedup_index",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_dedup
				ON notifications (company_id, user_id, type, subject_type, subject_id)
				WHERE is_read = false
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP INDEX IF EXISTS idx_notifications_dedup").Error
		},
	},
	{
		ID: "202501010004_seed_compliance_rules",
		Migrate: func(tx *gorm.DB) error {
			_, err := SeedRules(tx, DefaultRules())
			return err
		},
		Rollback: func(tx *gorm.DB) error {
			return nil
		},
	},
	{
		ID: "202501150001_create_password_resets",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.PasswordReset{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("password_resets")
		},
	},
	{
		// Document deletes are hard deletes. Rows soft-deleted before this
		// migration are removed with the column.
		ID: "202502010001_documents_hard_delete",
		Migrate: func(tx *gorm.DB) error {
			if !tx.Migrator().HasColumn("documents", "deleted_at") {
				return nil
			}
			if err := tx.Exec("DELETE FROM documents WHERE deleted_at IS NOT NULL").Error; err != nil {
				return err
			}
			return tx.Migrator().DropColumn("documents", "deleted_at")
		},
		Rollback: func(tx *gorm.DB) error {
			return nil
		},
	},
	{
		ID: "202502010002_documents_search_title",
		Migrate: func(tx *gorm.DB) error {
			if !tx.Migrator().HasColumn(&model.Document{}, "SearchTitle") {
				if err := tx.Migrator().AddColumn(&model.Document{}, "SearchTitle"); err != nil {
					return err
				}
			}
			return backfillSearchTitles(tx)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropColumn(&model.Document{}, "SearchTitle")
		},
	},
}

func backfillSearchTitles(tx *gorm.DB) error {
	var rows []struct {
		ID    uint
		Title string
	}
	if err := tx.Table("documents").Select("id, title").Scan(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		err := tx.Table("documents").
			Where("id = ?", row.ID).
			UpdateColumn("search_title", strings.ToLower(row.Title)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// RunMigrations applies every pending migration to db.
func RunMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrationsList)
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("could not migrate: %w", err)
	}
	return nil
}

// Migrate runs database migrations against the global connection
func Migrate() error {
	logger.Info("Running database migrations...")

	if err := RunMigrations(DB); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"migrations_count": len(migrationsList),
	})
	return nil
}

// SeedRules inserts rules whose title is not yet in the catalog and returns
// how many were created.
func SeedRules(tx *gorm.DB, rules []model.ComplianceRule) (int, error) {
	created := 0
	for _, rule := range rules {
		var count int64
		if err := tx.Model(&model.ComplianceRule{}).Where("title = ?", rule.Title).Count(&count).Error; err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}
		rule := rule
		if err := tx.Create(&rule).Error; err != nil {
			return created, fmt.Errorf("failed to seed rule %q: %w", rule.Title, err)
		}
		created++
	}
	return created, nil
}

// DefaultRules is the built-in UAE compliance catalog.
func DefaultRules() []model.ComplianceRule {
	return []model.ComplianceRule{
		{
			Title:         "Trade License Renewal",
			Description:   "Renew the commercial trade license with the Department of Economic Development",
			Category:      model.CategoryTradeLicense,
			Priority:      model.PriorityCritical,
			FrequencyDays: 365,
		},
		{
			Title:         "VAT Return Filing",
			Description:   "Submit the quarterly VAT return to the Federal Tax Authority",
			Category:      model.CategoryTaxRegistration,
			Priority:      model.PriorityHigh,
			FrequencyDays: 90,
		},
		{
			Title:         "Corporate Tax Registration",
			Description:   "Maintain an active corporate tax registration number",
			Category:      model.CategoryTaxRegistration,
			Priority:      model.PriorityHigh,
			FrequencyDays: 365,
		},
		{
			Title:         "Employee Visa Renewal",
			Description:   "Renew residence visas for sponsored employees",
			Category:      model.CategoryImmigration,
			Priority:      model.PriorityHigh,
			FrequencyDays: 730,
		},
		{
			Title:         "WPS Salary Submission",
			Description:   "Pay salaries through the Wage Protection System",
			Category:      model.CategoryLabor,
			Priority:      model.PriorityCritical,
			FrequencyDays: 30,
		},
		{
			Title:         "Fire Safety Inspection",
			Description:   "Civil Defence fire safety inspection of company premises",
			Category:      model.CategoryHealthSafety,
			Priority:      model.PriorityMedium,
			FrequencyDays: 365,
		},
		{
			Title:         "Waste Disposal Permit",
			Description:   "Renew the municipal waste disposal permit",
			Category:      model.CategoryEnvironmental,
			Priority:      model.PriorityLow,
			FrequencyDays: 365,
		},
		{
			Title:         "Audited Financial Statements",
			Description:   "File audited annual financial statements",
			Category:      model.CategoryFinancial,
			Priority:      model.PriorityMedium,
			FrequencyDays: 365,
		},
	}
}
