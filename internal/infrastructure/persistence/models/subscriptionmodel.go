package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/entgrid-io/entgrid/internal/shared/constants"
)

// SubscriptionModel mirrors upstream subscription data imported from a
// manifest or the hosted adapter. Pool refresh reads it, never writes it.
type SubscriptionModel struct {
	ID                        uint   `gorm:"primarykey"`
	SubscriptionID            string `gorm:"not null;size:64;uniqueIndex"`
	OwnerKey                  string `gorm:"not null;size:255;index"`
	ProductID                 string `gorm:"not null;size:255"`
	Quantity                  int64  `gorm:"not null"`
	StartDate                 time.Time `gorm:"not null"`
	EndDate                   time.Time `gorm:"not null"`
	ProvidedProductIDs        datatypes.JSON
	DerivedProductID          string `gorm:"size:255"`
	DerivedProvidedProductIDs datatypes.JSON
	ContractNumber            string `gorm:"size:255"`
	AccountNumber             string `gorm:"size:255"`
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}
