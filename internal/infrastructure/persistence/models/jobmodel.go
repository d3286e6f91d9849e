package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/entgrid-io/entgrid/internal/shared/constants"
)

// JobModel represents the database persistence model for async jobs
type JobModel struct {
	ID            uint   `gorm:"primarykey"`
	JobID         string `gorm:"not null;size:64;uniqueIndex"`
	TaskKey       string `gorm:"not null;size:64;index"`
	OwnerKey      string `gorm:"not null;size:255;index"`
	Principal     string `gorm:"not null;size:255"`
	State         string `gorm:"not null;size:16;index"`
	ResultMessage string `gorm:"size:1024"`
	Arguments     datatypes.JSON
	StartTime     *time.Time
	EndTime       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the table name for GORM
func (JobModel) TableName() string {
	return constants.TableJobs
}
