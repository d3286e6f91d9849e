package services

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadRoundTrip(t *testing.T) {
	view := &ContentView{
		Products: []ProductView{
			{
				ID:   "eng1",
				Name: "Engineering One",
				Content: []ContentEntry{
					{
						ID:      "c1",
						Type:    "yum",
						Name:    "Base Repo",
						Label:   "base-repo",
						Vendor:  "Acme",
						Path:    "/acme/content/base",
						Enabled: true,
						Arches:  "x86_64",
					},
				},
			},
			{ID: "eng2", Name: "Engineering Two"},
		},
	}

	payload, err := EncodePayload(view)
	require.NoError(t, err)

	// base64 text, safe to embed in a certificate extension
	_, err = base64.StdEncoding.DecodeString(string(payload))
	require.NoError(t, err)

	decoded, err := DecodePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, view, decoded)
}

func TestDecodePayload_Malformed(t *testing.T) {
	_, err := DecodePayload([]byte("!!! not base64 !!!"))
	assert.Error(t, err)

	// valid base64 of bytes that are not a zlib stream
	garbage := base64.StdEncoding.EncodeToString([]byte("plain text"))
	_, err = DecodePayload([]byte(garbage))
	assert.Error(t, err)
}

func TestEntitlementOIDs(t *testing.T) {
	// the OID arc is part of the certificate wire contract
	assert.Equal(t, "1.3.6.1.4.1.2312.9.6", OIDEntitlementVersion)
	assert.Equal(t, "1.3.6.1.4.1.2312.9.7", OIDEntitlementPayload)
	assert.Equal(t, "1.3.6.1.4.1.2312.9.8", OIDEntitlementType)
	assert.Equal(t, "3.4", EntitlementDataVersion)
}
