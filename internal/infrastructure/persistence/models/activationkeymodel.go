package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/entgrid-io/entgrid/internal/shared/constants"
)

// ActivationKeyModel represents the database persistence model for
// activation keys. Pools holds the pool bindings with their quantities.
type ActivationKeyModel struct {
	ID           uint   `gorm:"primarykey"`
	KeyID        string `gorm:"not null;size:64;uniqueIndex"`
	OwnerKey     string `gorm:"not null;size:255;uniqueIndex:idx_akey_owner_name"`
	Name         string `gorm:"not null;size:255;uniqueIndex:idx_akey_owner_name"`
	Pools        datatypes.JSON
	AutoAttach   bool
	ServiceLevel string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the table name for GORM
func (ActivationKeyModel) TableName() string {
	return constants.TableActivationKeys
}
