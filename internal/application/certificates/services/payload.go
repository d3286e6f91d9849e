package services

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// Red Hat entitlement OID arc. The signer stamps these extensions onto the
// issued X.509 certificates.
const (
	OIDEntitlementVersion = "1.3.6.1.4.1.2312.9.6"
	OIDEntitlementPayload = "1.3.6.1.4.1.2312.9.7"
	OIDEntitlementType    = "1.3.6.1.4.1.2312.9.8"

	// EntitlementDataVersion is the payload format version advertised
	// under OIDEntitlementVersion.
	EntitlementDataVersion = "3.4"
	// ContentAccessCertType marks an org-level content access certificate
	// under OIDEntitlementType.
	ContentAccessCertType = "OrgLevel"
)

// EncodePayload serializes a content view into the compressed form embedded
// in certificates: JSON, zlib-deflated, base64-encoded.
func EncodePayload(view *ContentView) ([]byte, error) {
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content view: %w", err)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress content view: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress content view: %w", err)
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(compressed.Len()))
	base64.StdEncoding.Encode(encoded, compressed.Bytes())
	return encoded, nil
}

// DecodePayload reverses EncodePayload. Clients use it to read back the
// content view from an issued certificate.
func DecodePayload(payload []byte) (*ContentView, error) {
	compressed := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(compressed, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed[:n]))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}

	var view ContentView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content view: %w", err)
	}
	return &view, nil
}
