package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Content access modes an owner can operate in. In entitlement mode content
// access follows per-consumer entitlement certificates; in org_environment
// mode (simple content access) the whole org is entitled and per-consumer
// compliance is disabled.
const (
	ContentAccessModeEntitlement    = "entitlement"
	ContentAccessModeOrgEnvironment = "org_environment"
)

// DefaultContentAccessModeList is the mode list applied when an owner is
// created or reset with an empty list.
var DefaultContentAccessModeList = []string{
	ContentAccessModeEntitlement,
	ContentAccessModeOrgEnvironment,
}

// DefaultContentAccessMode is the mode applied on creation or reset.
const DefaultContentAccessMode = ContentAccessModeOrgEnvironment

// Owner is the tenant boundary. Every pool, consumer, and catalog link is
// scoped to exactly one owner.
type Owner struct {
	id                    uint
	key                   string
	displayName           string
	contentAccessMode     string
	contentAccessModeList []string
	createdAt             time.Time
	updatedAt             time.Time
}

// NewOwner creates an owner with default content access configuration.
func NewOwner(key, displayName string) (*Owner, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("owner key is required")
	}
	if displayName == "" {
		displayName = key
	}
	now := time.Now().UTC()
	return &Owner{
		key:                   key,
		displayName:           displayName,
		contentAccessMode:     DefaultContentAccessMode,
		contentAccessModeList: append([]string(nil), DefaultContentAccessModeList...),
		createdAt:             now,
		updatedAt:             now,
	}, nil
}

// ReconstructOwner rebuilds an owner from persistence.
func ReconstructOwner(
	id uint,
	key, displayName string,
	contentAccessMode string,
	contentAccessModeList []string,
	createdAt, updatedAt time.Time,
) (*Owner, error) {
	if id == 0 {
		return nil, fmt.Errorf("owner ID cannot be zero")
	}
	if key == "" {
		return nil, fmt.Errorf("owner key is required")
	}
	if len(contentAccessModeList) == 0 {
		contentAccessModeList = append([]string(nil), DefaultContentAccessModeList...)
	}
	if contentAccessMode == "" {
		contentAccessMode = DefaultContentAccessMode
	}
	o := &Owner{
		id:                    id,
		key:                   key,
		displayName:           displayName,
		contentAccessMode:     contentAccessMode,
		contentAccessModeList: contentAccessModeList,
		createdAt:             createdAt,
		updatedAt:             updatedAt,
	}
	if !o.modeInList(contentAccessMode) {
		return nil, fmt.Errorf("content access mode %q is not in the owner mode list", contentAccessMode)
	}
	return o, nil
}

func (o *Owner) ID() uint              { return o.id }
func (o *Owner) Key() string           { return o.key }
func (o *Owner) DisplayName() string   { return o.displayName }
func (o *Owner) CreatedAt() time.Time  { return o.createdAt }
func (o *Owner) UpdatedAt() time.Time  { return o.updatedAt }
func (o *Owner) ContentAccessMode() string { return o.contentAccessMode }

// ContentAccessModeList returns a copy of the allowed mode list.
func (o *Owner) ContentAccessModeList() []string {
	return append([]string(nil), o.contentAccessModeList...)
}

// UsesSimpleContentAccess reports whether the owner operates in
// org_environment mode.
func (o *Owner) UsesSimpleContentAccess() bool {
	return o.contentAccessMode == ContentAccessModeOrgEnvironment
}

// SetID sets the owner ID (only for persistence layer use).
func (o *Owner) SetID(id uint) error {
	if o.id != 0 {
		return fmt.Errorf("owner ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("owner ID cannot be zero")
	}
	o.id = id
	return nil
}

// SetContentAccess updates the owner's mode list and current mode. Empty
// inputs reset to the defaults; a non-empty mode must be a member of the
// effective list.
func (o *Owner) SetContentAccess(modeList []string, mode string) error {
	effectiveList := modeList
	if len(effectiveList) == 0 || (len(effectiveList) == 1 && effectiveList[0] == "") {
		effectiveList = append([]string(nil), DefaultContentAccessModeList...)
	}
	for _, m := range effectiveList {
		if m != ContentAccessModeEntitlement && m != ContentAccessModeOrgEnvironment {
			return fmt.Errorf("unknown content access mode %q", m)
		}
	}

	effectiveMode := mode
	if effectiveMode == "" {
		effectiveMode = DefaultContentAccessMode
		if !contains(effectiveList, effectiveMode) {
			effectiveMode = effectiveList[0]
		}
	}
	if !contains(effectiveList, effectiveMode) {
		return fmt.Errorf("content access mode %q is not in the owner mode list", effectiveMode)
	}

	o.contentAccessModeList = effectiveList
	o.contentAccessMode = effectiveMode
	o.updatedAt = time.Now().UTC()
	return nil
}

func (o *Owner) modeInList(mode string) bool {
	return contains(o.contentAccessModeList, mode)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
