package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/entgrid-io/entgrid/internal/shared/constants"
)

// PoolModel represents the database persistence model for pools
// This is the anti-corruption layer between domain and database
type PoolModel struct {
	ID                        uint   `gorm:"primarykey"`
	PoolID                    string `gorm:"not null;size:64;uniqueIndex"`
	OwnerKey                  string `gorm:"not null;size:255;index:idx_pool_owner_type,priority:1"`
	PoolType                  string `gorm:"not null;size:32;index:idx_pool_owner_type,priority:2"`
	ProductID                 string `gorm:"not null;size:255;index"`
	ProductName               string `gorm:"size:255"`
	ProductAttributes         datatypes.JSON
	ProvidedProductIDs        datatypes.JSON
	DerivedProductID          string `gorm:"size:255"`
	DerivedProvidedProductIDs datatypes.JSON
	SubProductID              string `gorm:"size:255"`
	SubProvidedProductIDs     datatypes.JSON
	Quantity                  int64     `gorm:"not null"`
	StartDate                 time.Time `gorm:"not null"`
	EndDate                   time.Time `gorm:"not null;index"`
	Attributes                datatypes.JSON
	SubscriptionID            string `gorm:"size:255;index"`
	SourceStackID             string `gorm:"size:255;index:idx_pool_stack_source,priority:2"`
	SourceConsumerUUID        string `gorm:"size:64;index:idx_pool_stack_source,priority:1"`
	SourceEntitlementID       string `gorm:"size:64"`
	RequiresHost              string `gorm:"size:64;index"`
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// TableName specifies the table name for GORM
func (PoolModel) TableName() string {
	return constants.TablePools
}
