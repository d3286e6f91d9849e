// Package dto defines the request and response shapes of the compliance
// operations.
package dto

import (
	"time"

	"github.com/entgrid-io/entgrid/internal/domain/compliance"
)

// ComplianceStatusRequest computes one consumer's status, optionally as of a
// past or future date.
type ComplianceStatusRequest struct {
	ConsumerUUID string     `json:"consumer_uuid" validate:"required"`
	OnDate       *time.Time `json:"on_date"`
}

// ComplianceListRequest computes the status of a set of consumers in an
// owner. An empty ConsumerUUIDs list means every consumer in the owner.
type ComplianceListRequest struct {
	OwnerKey      string     `json:"owner_key" validate:"required"`
	ConsumerUUIDs []string   `json:"consumer_uuids"`
	OnDate        *time.Time `json:"on_date"`
}

// ConsumerCompliance pairs a consumer with its computed status.
type ConsumerCompliance struct {
	ConsumerUUID string             `json:"consumer_uuid"`
	ConsumerName string             `json:"consumer_name"`
	Status       *compliance.Status `json:"status"`
}
