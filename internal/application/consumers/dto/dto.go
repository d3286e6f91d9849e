// Package dto defines the transport-agnostic request and response shapes of
// the consumer registration operations.
package dto

import (
	"time"

	bindingdto "github.com/entgrid-io/entgrid/internal/application/binding/dto"
)

// InstalledProductInput is a product the registering system reports as
// installed.
type InstalledProductInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name"`
	Arch      string `json:"arch"`
	Version   string `json:"version"`
}

// RegisterConsumerRequest registers a new consumer in an owner. When
// ActivationKeys are given, each named key's pools are bound after the
// consumer is created; unknown keys are skipped unless every key is unknown.
type RegisterConsumerRequest struct {
	OwnerKey string `json:"owner_key"`
	Name     string `json:"name" validate:"required"`
	// Type defaults to system when empty.
	Type              string                  `json:"type"`
	Facts             map[string]string       `json:"facts"`
	InstalledProducts []InstalledProductInput `json:"installed_products"`
	ActivationKeys    []string                `json:"activation_keys"`
	ServiceLevel      string                  `json:"service_level"`
}

// ActivationKeyPoolInput is a pool binding carried by an activation key. A
// zero quantity means the suggested quantity is used at registration.
type ActivationKeyPoolInput struct {
	PoolID   string `json:"pool_id" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gte=0"`
}

// CreateActivationKeyRequest creates an activation key within an owner.
type CreateActivationKeyRequest struct {
	OwnerKey     string                   `json:"owner_key" validate:"required"`
	Name         string                   `json:"name" validate:"required"`
	Pools        []ActivationKeyPoolInput `json:"pools"`
	AutoAttach   bool                     `json:"auto_attach"`
	ServiceLevel string                   `json:"service_level"`
}

// ActivationKeyResponse is the caller-visible view of an activation key.
type ActivationKeyResponse struct {
	KeyID        string                   `json:"key_id"`
	OwnerKey     string                   `json:"owner_key"`
	Name         string                   `json:"name"`
	Pools        []ActivationKeyPoolInput `json:"pools,omitempty"`
	AutoAttach   bool                     `json:"auto_attach"`
	ServiceLevel string                   `json:"service_level,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
}

// RegisterConsumerResponse is the caller-visible view of a registration.
type RegisterConsumerResponse struct {
	UUID         string    `json:"uuid"`
	Name         string    `json:"name"`
	OwnerKey     string    `json:"owner_key"`
	Type         string    `json:"type"`
	ServiceLevel string    `json:"service_level,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	// DroppedFacts lists malformed typed facts discarded during sanitation.
	DroppedFacts []string `json:"dropped_facts,omitempty"`
	// ActivationKeysUsed names the keys that resolved and were applied.
	ActivationKeysUsed []string                         `json:"activation_keys_used,omitempty"`
	Entitlements       []bindingdto.EntitlementResponse `json:"entitlements,omitempty"`
}
