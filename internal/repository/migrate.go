package repository

import "gorm.io/gorm"

// AutoMigrate creates or updates the tables backing the repositories in this
// package. The notification table is owned by the notification module and
// migrated separately.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userModel{},
		&offerModel{},
		&negotiationModel{},
		&orderModel{},
		&orderItemModel{},
		&invoiceModel{},
	)
}
