// Package dto defines the request and response shapes of the certificate
// operations.
package dto

import "time"

// CertificateResponse is the caller-visible view of a certificate record.
// Payload is the compressed content body clients embed under the payload
// OID.
type CertificateResponse struct {
	Serial        int64     `json:"serial"`
	Type          string    `json:"type"`
	ConsumerUUID  string    `json:"consumer_uuid"`
	EntitlementID string    `json:"entitlement_id,omitempty"`
	KeyID         string    `json:"key_id"`
	Payload       []byte    `json:"payload"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RegenerateRequest targets certificate regeneration at one of a consumer,
// a product, or a single entitlement. Exactly one selector must be set.
type RegenerateRequest struct {
	ConsumerUUID  string `json:"consumer_uuid"`
	ProductID     string `json:"product_id"`
	OwnerKey      string `json:"owner_key"`
	EntitlementID string `json:"entitlement_id"`
}

// RegenerateResult counts the certificates reissued.
type RegenerateResult struct {
	Regenerated int `json:"regenerated"`
}

// ContentAccessBodyRequest fetches a consumer's content access payload,
// optionally only when it changed since the given instant.
type ContentAccessBodyRequest struct {
	ConsumerUUID string     `json:"consumer_uuid" validate:"required"`
	Since        *time.Time `json:"since"`
}

// ContentAccessBody carries the content access payload. NotModified is set,
// with an empty body, when the payload has not changed since the requested
// instant.
type ContentAccessBody struct {
	ConsumerUUID string    `json:"consumer_uuid"`
	Serial       int64     `json:"serial"`
	KeyID        string    `json:"key_id"`
	Body         []byte    `json:"body,omitempty"`
	LastUpdate   time.Time `json:"last_update"`
	NotModified  bool      `json:"not_modified"`
}
