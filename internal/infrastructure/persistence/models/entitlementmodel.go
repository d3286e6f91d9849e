package models

import (
	"time"

	"github.com/entgrid-io/entgrid/internal/shared/constants"
)

// EntitlementModel represents the database persistence model for
// entitlements. AddedAt orders stack members for representative selection
// and is distinct from CreatedAt, which GORM manages.
type EntitlementModel struct {
	ID             uint   `gorm:"primarykey"`
	EntitlementID  string `gorm:"not null;size:64;uniqueIndex"`
	OwnerKey       string `gorm:"not null;size:255;index"`
	ConsumerUUID   string `gorm:"not null;size:64;index"`
	PoolID         string `gorm:"not null;size:64;index"`
	Quantity       int64  `gorm:"not null"`
	CertSerial     int64  `gorm:"not null"`
	AddedAt        time.Time `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for GORM
func (EntitlementModel) TableName() string {
	return constants.TableEntitlements
}
