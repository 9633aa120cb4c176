// Package models contains the gorm entities, status enums and lookup tables of the dashboard
package models

// All returns every persisted entity in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&Workspace{},
		&User{},
		&Campaign{},
		&AdSet{},
		&Creative{},
		&Ad{},
		&MetricRecord{},
		&Notification{},
		&SyncJob{},
		&AuditLog{},
	}
}
