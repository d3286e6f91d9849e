package pool

import (
	"fmt"
	"time"
)

// Subscription is the upstream allotment a NORMAL pool is backed by. It is
// the input to refreshPools, not something the engine owns; the engine only
// mirrors it into pools.
type Subscription struct {
	ID                        string
	OwnerKey                  string
	ProductID                 string
	Quantity                  int64
	StartDate                 time.Time
	EndDate                   time.Time
	ProvidedProductIDs        []string
	DerivedProductID          string
	DerivedProvidedProductIDs []string
	ContractNumber            string
	AccountNumber             string
}

// Validate checks the subscription is well formed before reconciliation.
func (s *Subscription) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("subscription ID is required")
	}
	if s.OwnerKey == "" {
		return fmt.Errorf("subscription %s: owner key is required", s.ID)
	}
	if s.ProductID == "" {
		return fmt.Errorf("subscription %s: product ID is required", s.ID)
	}
	if s.Quantity < UnlimitedQuantity {
		return fmt.Errorf("subscription %s: invalid quantity %d", s.ID, s.Quantity)
	}
	if s.EndDate.Before(s.StartDate) {
		return fmt.Errorf("subscription %s: end date precedes start date", s.ID)
	}
	return nil
}

// ExpiredAsOf reports whether the subscription window has closed.
func (s *Subscription) ExpiredAsOf(t time.Time) bool {
	return t.After(s.EndDate)
}
