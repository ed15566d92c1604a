package db

import (
	"pledgedesk/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.PledgeSession{},
		&models.Pledge{},
		&models.PledgeExecutionRecord{},
		&models.PledgeAuditLog{},
		&models.AdvisorPledgeAccessRequest{},
		&models.SystemSetting{},
	)
}
