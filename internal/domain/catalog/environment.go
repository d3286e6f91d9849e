package catalog

import (
	"fmt"
	"time"
)

// PromotedContent records a content promotion into an environment. The
// Enabled flag set at promotion time overrides the product-content default
// when building a consumer's content view.
type PromotedContent struct {
	ContentID string
	Enabled   bool
}

// Environment is an owner-scoped content view layer. Consumers registered
// into one or more environments only see content promoted to at least one
// of them.
type Environment struct {
	id        string
	ownerKey  string
	name      string
	promoted  map[string]PromotedContent
	createdAt time.Time
	updatedAt time.Time
}

// NewEnvironment creates an empty environment for an owner.
func NewEnvironment(id, ownerKey, name string) (*Environment, error) {
	if id == "" {
		return nil, fmt.Errorf("environment ID is required")
	}
	if ownerKey == "" {
		return nil, fmt.Errorf("owner key is required")
	}
	if name == "" {
		name = id
	}
	now := time.Now().UTC()
	return &Environment{
		id:        id,
		ownerKey:  ownerKey,
		name:      name,
		promoted:  make(map[string]PromotedContent),
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructEnvironment rebuilds an environment from persistence.
func ReconstructEnvironment(
	id, ownerKey, name string,
	promoted []PromotedContent,
	createdAt, updatedAt time.Time,
) (*Environment, error) {
	env, err := NewEnvironment(id, ownerKey, name)
	if err != nil {
		return nil, err
	}
	for _, pc := range promoted {
		env.promoted[pc.ContentID] = pc
	}
	env.createdAt = createdAt
	env.updatedAt = updatedAt
	return env, nil
}

func (e *Environment) ID() string           { return e.id }
func (e *Environment) OwnerKey() string     { return e.ownerKey }
func (e *Environment) Name() string         { return e.name }
func (e *Environment) CreatedAt() time.Time { return e.createdAt }
func (e *Environment) UpdatedAt() time.Time { return e.updatedAt }

// Promote adds or updates a content promotion with an explicit enabled flag.
func (e *Environment) Promote(contentID string, enabled bool) error {
	if contentID == "" {
		return fmt.Errorf("content ID is required")
	}
	e.promoted[contentID] = PromotedContent{ContentID: contentID, Enabled: enabled}
	e.updatedAt = time.Now().UTC()
	return nil
}

// Demote removes a content promotion.
func (e *Environment) Demote(contentID string) error {
	if _, ok := e.promoted[contentID]; !ok {
		return fmt.Errorf("content %s is not promoted to environment %s", contentID, e.id)
	}
	delete(e.promoted, contentID)
	e.updatedAt = time.Now().UTC()
	return nil
}

// Promotion returns the promotion record for a content ID, if present.
func (e *Environment) Promotion(contentID string) (PromotedContent, bool) {
	pc, ok := e.promoted[contentID]
	return pc, ok
}

// PromotedContent lists all promotions in the environment.
func (e *Environment) PromotedContent() []PromotedContent {
	out := make([]PromotedContent, 0, len(e.promoted))
	for _, pc := range e.promoted {
		out = append(out, pc)
	}
	return out
}
