// Package dto defines the transport-agnostic request and response shapes of
// the binding operations.
package dto

import "time"

// BindPoolRequest asks for an entitlement against a specific pool.
type BindPoolRequest struct {
	ConsumerUUID string `json:"consumer_uuid" validate:"required"`
	PoolID       string `json:"pool_id" validate:"required"`
	// Quantity defaults to 1 when zero.
	Quantity int64 `json:"quantity" validate:"gte=0"`
}

// AutoBindRequest asks the engine to cover products automatically.
type AutoBindRequest struct {
	ConsumerUUID string `json:"consumer_uuid" validate:"required"`
	// ProductIDs to cover; empty means the consumer's uncovered installed
	// products.
	ProductIDs []string `json:"product_ids"`
	// EntitleDate evaluates pool candidacy as of this date instead of now.
	EntitleDate *time.Time `json:"entitle_date"`
	// Async queues the operation as a job instead of executing inline.
	Async bool `json:"async"`
}

// EntitlementResponse is the caller-visible view of an entitlement.
type EntitlementResponse struct {
	ID           string    `json:"id"`
	ConsumerUUID string    `json:"consumer_uuid"`
	PoolID       string    `json:"pool_id"`
	ProductID    string    `json:"product_id"`
	Quantity     int64     `json:"quantity"`
	CertSerial   int64     `json:"cert_serial"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

// AutoBindResponse reports the entitlements granted by an auto-attach run,
// or the queued job when async execution was requested.
type AutoBindResponse struct {
	Entitlements []EntitlementResponse `json:"entitlements,omitempty"`
	JobID        string                `json:"job_id,omitempty"`
}

// RevokeAllResponse reports how many entitlements were revoked.
type RevokeAllResponse struct {
	ConsumerUUID string `json:"consumer_uuid"`
	Revoked      int    `json:"revoked"`
}
