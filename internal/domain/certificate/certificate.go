// Package certificate models the certificates the engine issues: the data
// each certificate must encode and its serial/key identity. The actual X.509
// signing is an external collaborator; the engine only decides content.
package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// CertType distinguishes per-entitlement certificates from the org-level
// content access certificate.
type CertType string

const (
	TypeEntitlement   CertType = "entitlement"
	TypeContentAccess CertType = "content_access"
)

// Certificate is the engine's record of an issued certificate: its serial,
// key identity, and the compressed content payload handed to the signer.
type Certificate struct {
	id           uint
	serial       int64
	certType     CertType
	consumerUUID string
	// entitlementID set only for per-entitlement certificates.
	entitlementID string
	// keyID identifies the key pair backing the certificate. Content-only
	// regeneration of a content access certificate preserves both keyID
	// and serial.
	keyID       string
	payload     []byte
	payloadHash string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewCertificate issues a certificate record with a fresh payload.
func NewCertificate(certType CertType, consumerUUID, entitlementID, keyID string, serial int64, payload []byte) (*Certificate, error) {
	if !certTypeValid(certType) {
		return nil, fmt.Errorf("invalid certificate type: %s", certType)
	}
	if consumerUUID == "" {
		return nil, fmt.Errorf("consumer UUID is required")
	}
	if certType == TypeEntitlement && entitlementID == "" {
		return nil, fmt.Errorf("entitlement certificates require an entitlement ID")
	}
	if serial <= 0 {
		return nil, fmt.Errorf("certificate serial must be positive, got %d", serial)
	}
	now := time.Now().UTC()
	return &Certificate{
		serial:        serial,
		certType:      certType,
		consumerUUID:  consumerUUID,
		entitlementID: entitlementID,
		keyID:         keyID,
		payload:       append([]byte(nil), payload...),
		payloadHash:   HashPayload(payload),
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructCertificate rebuilds a certificate record from persistence.
func ReconstructCertificate(
	id uint,
	serial int64,
	certType CertType,
	consumerUUID, entitlementID, keyID string,
	payload []byte,
	createdAt, updatedAt time.Time,
) (*Certificate, error) {
	if id == 0 {
		return nil, fmt.Errorf("certificate ID cannot be zero")
	}
	if !certTypeValid(certType) {
		return nil, fmt.Errorf("invalid certificate type: %s", certType)
	}
	return &Certificate{
		id:            id,
		serial:        serial,
		certType:      certType,
		consumerUUID:  consumerUUID,
		entitlementID: entitlementID,
		keyID:         keyID,
		payload:       append([]byte(nil), payload...),
		payloadHash:   HashPayload(payload),
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}, nil
}

func (c *Certificate) ID() uint              { return c.id }
func (c *Certificate) Serial() int64         { return c.serial }
func (c *Certificate) Type() CertType        { return c.certType }
func (c *Certificate) ConsumerUUID() string  { return c.consumerUUID }
func (c *Certificate) EntitlementID() string { return c.entitlementID }
func (c *Certificate) KeyID() string         { return c.keyID }
func (c *Certificate) PayloadHash() string   { return c.payloadHash }
func (c *Certificate) CreatedAt() time.Time  { return c.createdAt }
func (c *Certificate) UpdatedAt() time.Time  { return c.updatedAt }

// Payload returns the compressed content payload.
func (c *Certificate) Payload() []byte {
	return append([]byte(nil), c.payload...)
}

// SetID sets the record ID (only for persistence layer use).
func (c *Certificate) SetID(id uint) error {
	if c.id != 0 {
		return fmt.Errorf("certificate ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("certificate ID cannot be zero")
	}
	c.id = id
	return nil
}

// ReplacePayload swaps the content payload in place, keeping the serial and
// key identity. Only content access certificates support this partial
// regeneration; entitlement certificates are reissued with a new serial.
// Returns true when the payload actually changed.
func (c *Certificate) ReplacePayload(payload []byte) (bool, error) {
	if c.certType != TypeContentAccess {
		return false, fmt.Errorf("partial regeneration is only supported for content access certificates")
	}
	hash := HashPayload(payload)
	if hash == c.payloadHash {
		return false, nil
	}
	c.payload = append([]byte(nil), payload...)
	c.payloadHash = hash
	c.updatedAt = time.Now().UTC()
	return true, nil
}

// Reissue replaces both payload and serial, used for full regeneration.
func (c *Certificate) Reissue(serial int64, payload []byte) error {
	if serial <= 0 {
		return fmt.Errorf("certificate serial must be positive, got %d", serial)
	}
	c.serial = serial
	c.payload = append([]byte(nil), payload...)
	c.payloadHash = HashPayload(payload)
	c.updatedAt = time.Now().UTC()
	return nil
}

// HashPayload fingerprints a payload for change detection.
func HashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func certTypeValid(t CertType) bool {
	return t == TypeEntitlement || t == TypeContentAccess
}
