package models

import (
	"bitbucket.org/xxlgroup/orderhub_backend/config"
)

// MigrateTable runs the gorm auto-migration for every entity. Order matters
// for foreign keys: referenced tables first.
func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Country{},
		&User{},
		&Factory{},
		&Order{},
		&Invoice{},
		&InvoicePayment{},
		&Shipment{},
		&EInvoiceBasket{},
		&Confirmation{},
		&ExecutionKey{},
		&Notification{},
		&NotificationSettings{},
		&AuditLog{},
	)
}
