package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/entgrid-io/entgrid/internal/shared/constants"
)

// ConsumerModel represents the database persistence model for consumers
// This is the anti-corruption layer between domain and database
type ConsumerModel struct {
	ID                 uint   `gorm:"primarykey"`
	UUID               string `gorm:"not null;size:64;uniqueIndex"`
	Name               string `gorm:"not null;size:255"`
	OwnerKey           string `gorm:"not null;size:255;index:idx_consumer_owner_type,priority:1"`
	ConsumerType       string `gorm:"not null;size:32;index:idx_consumer_owner_type,priority:2"`
	Facts              datatypes.JSON
	InstalledProducts  datatypes.JSON
	Guests             datatypes.JSON
	HostUUID           string `gorm:"size:64;index"`
	HypervisorID       string `gorm:"size:255;index:idx_consumer_hypervisor"`
	VirtUUID           string `gorm:"size:64;index:idx_consumer_virt_uuid"`
	EnvironmentIDs     datatypes.JSON
	Capabilities       datatypes.JSON
	CapabilityOverride bool `gorm:"not null;default:false"`
	Autoheal           bool `gorm:"not null;default:true"`
	ServiceLevel       string `gorm:"size:255"`
	ContentAccessMode  string `gorm:"size:32"`
	LastCheckin        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	// DeletedAt soft-deletes unregistered consumers so later operations
	// can distinguish gone from never-existed.
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (ConsumerModel) TableName() string {
	return constants.TableConsumers
}
