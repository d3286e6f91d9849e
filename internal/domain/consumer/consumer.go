package consumer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InstalledProduct is a product the consumer reports as installed. It is what
// compliance is judged against.
type InstalledProduct struct {
	ProductID string
	Name      string
	Arch      string
	Version   string
}

// Consumer is a registered unit of consumption: a system, a person, a
// hypervisor host, or a downstream distributor.
type Consumer struct {
	id                uint
	uuid              string
	name              string
	ownerKey          string
	consumerType      Type
	facts             Facts
	installedProducts []InstalledProduct
	guests            GuestList
	hostUUID          string
	environmentIDs    []string
	capabilities      []string
	capabilityOverride bool
	autoheal          bool
	serviceLevel      string
	contentAccessMode string
	lastCheckin       time.Time
	createdAt         time.Time
	updatedAt         time.Time
}

// NewConsumer registers a consumer, sanitizing its fact bag (malformed typed
// facts are dropped, not fatal).
func NewConsumer(name, ownerKey string, consumerType Type, facts Facts) (*Consumer, []string, error) {
	if name == "" {
		return nil, nil, fmt.Errorf("consumer name is required")
	}
	if ownerKey == "" {
		return nil, nil, fmt.Errorf("owner key is required")
	}
	if !consumerType.IsValid() {
		return nil, nil, fmt.Errorf("invalid consumer type: %s", consumerType)
	}

	clean, dropped := SanitizeFacts(facts)
	now := time.Now().UTC()
	c := &Consumer{
		uuid:         uuid.NewString(),
		name:         name,
		ownerKey:     ownerKey,
		consumerType: consumerType,
		facts:        clean,
		autoheal:     true,
		createdAt:    now,
		updatedAt:    now,
	}
	c.refreshDerivedCapabilities()
	return c, dropped, nil
}

// ConsumerReconstructParams carries persisted consumer state.
type ConsumerReconstructParams struct {
	ID                 uint
	UUID               string
	Name               string
	OwnerKey           string
	Type               Type
	Facts              Facts
	InstalledProducts  []InstalledProduct
	Guests             GuestList
	HostUUID           string
	EnvironmentIDs     []string
	Capabilities       []string
	CapabilityOverride bool
	Autoheal           bool
	ServiceLevel       string
	ContentAccessMode  string
	LastCheckin        time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ReconstructConsumer rebuilds a consumer from persistence.
func ReconstructConsumer(params ConsumerReconstructParams) (*Consumer, error) {
	if params.ID == 0 {
		return nil, fmt.Errorf("consumer ID cannot be zero")
	}
	if params.UUID == "" {
		return nil, fmt.Errorf("consumer UUID is required")
	}
	if !params.Type.IsValid() {
		return nil, fmt.Errorf("invalid consumer type: %s", params.Type)
	}
	if params.Facts == nil {
		params.Facts = Facts{}
	}
	c := &Consumer{
		id:                 params.ID,
		uuid:               params.UUID,
		name:               params.Name,
		ownerKey:           params.OwnerKey,
		consumerType:       params.Type,
		facts:              params.Facts.Copy(),
		installedProducts:  append([]InstalledProduct(nil), params.InstalledProducts...),
		guests:             params.Guests.Copy(),
		hostUUID:           params.HostUUID,
		environmentIDs:     append([]string(nil), params.EnvironmentIDs...),
		capabilities:       append([]string(nil), params.Capabilities...),
		capabilityOverride: params.CapabilityOverride,
		autoheal:           params.Autoheal,
		serviceLevel:       params.ServiceLevel,
		contentAccessMode:  params.ContentAccessMode,
		lastCheckin:        params.LastCheckin,
		createdAt:          params.CreatedAt,
		updatedAt:          params.UpdatedAt,
	}
	if !c.capabilityOverride {
		c.refreshDerivedCapabilities()
	}
	return c, nil
}

func (c *Consumer) ID() uint                  { return c.id }
func (c *Consumer) UUID() string              { return c.uuid }
func (c *Consumer) Name() string              { return c.name }
func (c *Consumer) OwnerKey() string          { return c.ownerKey }
func (c *Consumer) Type() Type                { return c.consumerType }
func (c *Consumer) Facts() Facts              { return c.facts.Copy() }
func (c *Consumer) HostUUID() string          { return c.hostUUID }
func (c *Consumer) Autoheal() bool            { return c.autoheal }
func (c *Consumer) ServiceLevel() string      { return c.serviceLevel }
func (c *Consumer) ContentAccessMode() string { return c.contentAccessMode }
func (c *Consumer) LastCheckin() time.Time    { return c.lastCheckin }
func (c *Consumer) CreatedAt() time.Time      { return c.createdAt }
func (c *Consumer) UpdatedAt() time.Time      { return c.updatedAt }
func (c *Consumer) Guests() GuestList         { return c.guests.Copy() }

func (c *Consumer) InstalledProducts() []InstalledProduct {
	return append([]InstalledProduct(nil), c.installedProducts...)
}

func (c *Consumer) EnvironmentIDs() []string {
	return append([]string(nil), c.environmentIDs...)
}

func (c *Consumer) Capabilities() []string {
	return append([]string(nil), c.capabilities...)
}

// CapabilityOverride reports whether the capability list was set explicitly
// rather than derived from the distributor version fact.
func (c *Consumer) CapabilityOverride() bool { return c.capabilityOverride }

// HasCapability reports whether the consumer advertises a capability.
// Non-distributor consumers implicitly support everything.
func (c *Consumer) HasCapability(capability string) bool {
	if !c.consumerType.IsDistributor() {
		return true
	}
	for _, cap := range c.capabilities {
		if cap == capability {
			return true
		}
	}
	return false
}

// SetID sets the consumer ID (only for persistence layer use).
func (c *Consumer) SetID(id uint) error {
	if c.id != 0 {
		return fmt.Errorf("consumer ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("consumer ID cannot be zero")
	}
	c.id = id
	return nil
}

// UpdateFacts replaces the fact bag, dropping malformed typed facts, and
// rederives capabilities unless an explicit override is set. The dropped
// fact keys are returned for logging.
func (c *Consumer) UpdateFacts(facts Facts) []string {
	clean, dropped := SanitizeFacts(facts)
	c.facts = clean
	if !c.capabilityOverride {
		c.refreshDerivedCapabilities()
	}
	c.touch()
	return dropped
}

// SetInstalledProducts replaces the installed product list.
func (c *Consumer) SetInstalledProducts(products []InstalledProduct) {
	c.installedProducts = append([]InstalledProduct(nil), products...)
	c.touch()
}

// OverrideCapabilities pins an explicit capability list, disabling
// derivation from the distributor_version fact.
func (c *Consumer) OverrideCapabilities(capabilities []string) {
	c.capabilities = append([]string(nil), capabilities...)
	c.capabilityOverride = true
	c.touch()
}

// SetAutoheal toggles automatic healing during compliance enforcement.
func (c *Consumer) SetAutoheal(autoheal bool) {
	c.autoheal = autoheal
	c.touch()
}

// SetServiceLevel records the preferred service level for autobind.
func (c *Consumer) SetServiceLevel(level string) {
	c.serviceLevel = level
	c.touch()
}

// SetContentAccessMode sets a per-consumer content access mode. Only
// distributors may carry one; other consumer types follow their owner.
func (c *Consumer) SetContentAccessMode(mode string) error {
	if mode != "" && !c.consumerType.IsDistributor() {
		return fmt.Errorf("content access mode can only be set on distributor consumers")
	}
	c.contentAccessMode = mode
	c.touch()
	return nil
}

// SetEnvironments replaces the consumer's environment membership.
func (c *Consumer) SetEnvironments(environmentIDs []string) {
	c.environmentIDs = append([]string(nil), environmentIDs...)
	c.touch()
}

// SetHost records the host this guest currently runs on.
func (c *Consumer) SetHost(hostUUID string) {
	c.hostUUID = hostUUID
	c.touch()
}

// ApplyGuestReport merges a reported guest list using last-write-wins
// ordering; see GuestList.Apply. Returns true when the stored list changed.
func (c *Consumer) ApplyGuestReport(guestIDs []string, reportedAt time.Time, requestID string) bool {
	changed := c.guests.Apply(guestIDs, reportedAt, requestID)
	if changed {
		c.touch()
	}
	return changed
}

// Checkin stamps the consumer's last checkin time.
func (c *Consumer) Checkin(at time.Time) {
	c.lastCheckin = at.UTC()
	c.touch()
}

func (c *Consumer) refreshDerivedCapabilities() {
	version := c.facts[FactDistributorVersion]
	if version == "" {
		return
	}
	c.capabilities = CapabilitiesForDistributorVersion(version)
}

func (c *Consumer) touch() {
	c.updatedAt = time.Now().UTC()
}

// NewRequestID produces a stable tiebreaker for concurrent guest reports
// carrying identical timestamps.
func NewRequestID() string {
	return uuid.NewString()
}
