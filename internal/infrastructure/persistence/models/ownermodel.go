package models

import (
	"time"

	"github.com/entgrid-io/entgrid/internal/shared/constants"
)

// OwnerModel represents the database persistence model for owners
// This is the anti-corruption layer between domain and database
type OwnerModel struct {
	ID                    uint   `gorm:"primarykey"`
	OwnerKey              string `gorm:"not null;size:255;uniqueIndex"`
	DisplayName           string `gorm:"size:255"`
	ContentAccessMode     string `gorm:"not null;size:32"`
	ContentAccessModeList string `gorm:"not null;size:255"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName specifies the table name for GORM
func (OwnerModel) TableName() string {
	return constants.TableOwners
}
