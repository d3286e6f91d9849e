package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/entgrid-io/entgrid/internal/shared/constants"
)

// ProductVersionModel stores one immutable content-addressed product
// version. Identical (id, name, attributes, content, provided) tuples share
// a single row regardless of how many owners link to it.
type ProductVersionModel struct {
	ID                  uint   `gorm:"primarykey"`
	VersionHash         string `gorm:"not null;size:64;uniqueIndex"`
	ProductID           string `gorm:"not null;size:255;index"`
	Name                string `gorm:"not null;size:255"`
	Multiplier          int    `gorm:"not null;default:1"`
	Attributes          datatypes.JSON
	Content             datatypes.JSON
	ProvidedProductIDs  datatypes.JSON
	DependentProductIDs datatypes.JSON
	CreatedAt           time.Time
}

// TableName specifies the table name for GORM
func (ProductVersionModel) TableName() string {
	return constants.TableProductVersions
}

// OwnerProductModel links one owner's view of a product ID to a version.
type OwnerProductModel struct {
	ID          uint   `gorm:"primarykey"`
	OwnerKey    string `gorm:"not null;size:255;uniqueIndex:idx_owner_product,priority:1"`
	ProductID   string `gorm:"not null;size:255;uniqueIndex:idx_owner_product,priority:2"`
	VersionHash string `gorm:"not null;size:64;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for GORM
func (OwnerProductModel) TableName() string {
	return constants.TableOwnerProducts
}
