// Package dto defines the request and response shapes of the pool
// operations.
package dto

import "time"

// RefreshPoolsRequest reconciles one owner's pools against its current
// subscription data.
type RefreshPoolsRequest struct {
	OwnerKey string `json:"owner_key" validate:"required"`
}

// RefreshPoolsResult summarizes what a refresh changed.
type RefreshPoolsResult struct {
	OwnerKey  string `json:"owner_key"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Deleted   int    `json:"deleted"`
	Unchanged int    `json:"unchanged"`
}

// ListPoolsRequest lists an owner's pools, optionally filtered to those a
// consumer could actually attach.
type ListPoolsRequest struct {
	OwnerKey string `json:"owner_key" validate:"required"`
	// ConsumerUUID filters out pools the consumer cannot use, unless
	// ListAll is set.
	ConsumerUUID string     `json:"consumer_uuid"`
	ProductID    string     `json:"product_id"`
	ActiveOn     *time.Time `json:"active_on"`
	ListAll      bool       `json:"list_all"`
}

// PoolResponse is the caller-visible view of a pool.
type PoolResponse struct {
	ID                 string            `json:"id"`
	OwnerKey           string            `json:"owner_key"`
	Type               string            `json:"type"`
	ProductID          string            `json:"product_id"`
	ProductName        string            `json:"product_name"`
	Quantity           int64             `json:"quantity"`
	Consumed           int64             `json:"consumed"`
	StartDate          time.Time         `json:"start_date"`
	EndDate            time.Time         `json:"end_date"`
	ProvidedProductIDs []string          `json:"provided_product_ids,omitempty"`
	DerivedProductID   string            `json:"derived_product_id,omitempty"`
	SubscriptionID     string            `json:"subscription_id,omitempty"`
	SourceStackID      string            `json:"source_stack_id,omitempty"`
	Attributes         map[string]string `json:"attributes,omitempty"`
}
