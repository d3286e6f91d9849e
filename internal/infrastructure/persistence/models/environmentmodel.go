package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/entgrid-io/entgrid/internal/shared/constants"
)

// EnvironmentModel represents the database persistence model for content
// environments. Promoted holds the per-content promotion records with their
// enabled overrides.
type EnvironmentModel struct {
	ID            uint   `gorm:"primarykey"`
	EnvironmentID string `gorm:"not null;size:64;uniqueIndex"`
	OwnerKey      string `gorm:"not null;size:255;index"`
	Name          string `gorm:"not null;size:255"`
	Promoted      datatypes.JSON
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the table name for GORM
func (EnvironmentModel) TableName() string {
	return constants.TableEnvironments
}
