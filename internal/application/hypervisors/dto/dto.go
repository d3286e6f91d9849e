// Package dto defines the request and response shapes of the hypervisor
// operations.
package dto

import "time"

// GuestReport is one hypervisor's guest list within a check-in batch.
type GuestReport struct {
	HypervisorID string   `json:"hypervisor_id" validate:"required"`
	Name         string   `json:"name"`
	GuestIDs     []string `json:"guest_ids"`
}

// CheckInRequest is a virt-who style batch report of hypervisors and their
// guests for one owner.
type CheckInRequest struct {
	OwnerKey string `json:"owner_key" validate:"required"`
	// ReporterID identifies the reporting agent for liveness tracking.
	ReporterID string        `json:"reporter_id"`
	Reports    []GuestReport `json:"reports" validate:"required,min=1,dive"`
	// CreateMissing registers hypervisors not seen before instead of
	// reporting them failed.
	CreateMissing bool `json:"create_missing"`
}

// CheckInResult buckets each reported hypervisor by outcome.
type CheckInResult struct {
	Created      []string `json:"created"`
	Updated      []string `json:"updated"`
	Unchanged    []string `json:"unchanged"`
	FailedUpdate []string `json:"failed_update"`
}

// HeartbeatRequest records that a reporter is alive without a full report.
type HeartbeatRequest struct {
	OwnerKey   string `json:"owner_key" validate:"required"`
	ReporterID string `json:"reporter_id" validate:"required"`
}

// HeartbeatResult acknowledges a heartbeat.
type HeartbeatResult struct {
	ReporterID string    `json:"reporter_id"`
	SeenAt     time.Time `json:"seen_at"`
}
