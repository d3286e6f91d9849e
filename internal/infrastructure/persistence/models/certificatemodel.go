package models

import (
	"time"

	"github.com/entgrid-io/entgrid/internal/shared/constants"
)

// CertificateModel represents the database persistence model for issued
// certificates. Payload holds the compressed content body handed to the
// external signer.
type CertificateModel struct {
	ID            uint   `gorm:"primarykey"`
	Serial        int64  `gorm:"not null;uniqueIndex"`
	CertType      string `gorm:"not null;size:32;index:idx_cert_consumer_type,priority:2"`
	ConsumerUUID  string `gorm:"not null;size:64;index:idx_cert_consumer_type,priority:1"`
	EntitlementID string `gorm:"size:64;index"`
	KeyID         string `gorm:"not null;size:64"`
	Payload       []byte `gorm:"type:blob"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the table name for GORM
func (CertificateModel) TableName() string {
	return constants.TableCertificates
}

// CertSerialModel backs the monotonic certificate serial allocator: each
// allocation inserts a row and uses its auto-increment ID as the serial.
type CertSerialModel struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
}

// TableName specifies the table name for GORM
func (CertSerialModel) TableName() string {
	return constants.TableCertSerials
}
