package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/entgrid-io/entgrid/internal/shared/constants"
)

// ContentVersionModel stores one immutable content-addressed content
// version, shared across owners like product versions.
type ContentVersionModel struct {
	ID                 uint   `gorm:"primarykey"`
	VersionHash        string `gorm:"not null;size:64;uniqueIndex"`
	ContentID          string `gorm:"not null;size:255;index"`
	Label              string `gorm:"not null;size:255"`
	Name               string `gorm:"not null;size:255"`
	ContentType        string `gorm:"not null;size:32"`
	Vendor             string `gorm:"size:255"`
	ContentURL         string `gorm:"size:1024"`
	GpgURL             string `gorm:"size:1024"`
	Arches             string `gorm:"size:255"`
	RequiredTags       string `gorm:"size:255"`
	MetadataExpire     int64
	ModifiedProductIDs datatypes.JSON
	CreatedAt          time.Time
}

// TableName specifies the table name for GORM
func (ContentVersionModel) TableName() string {
	return constants.TableContentVersions
}

// OwnerContentModel links one owner's view of a content ID to a version.
type OwnerContentModel struct {
	ID          uint   `gorm:"primarykey"`
	OwnerKey    string `gorm:"not null;size:255;uniqueIndex:idx_owner_content,priority:1"`
	ContentID   string `gorm:"not null;size:255;uniqueIndex:idx_owner_content,priority:2"`
	VersionHash string `gorm:"not null;size:64;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for GORM
func (OwnerContentModel) TableName() string {
	return constants.TableOwnerContents
}
