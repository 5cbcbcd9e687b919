package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tlsca/internal/pki"
)

func TestNewCertMetadataFromX509(t *testing.T) {
	issuer := pki.NewIssuer()
	ca, err := issuer.GenerateCA("Test CA")
	require.NoError(t, err)

	leaf, err := issuer.IssueService(ca, pki.ParseService("*.example.com"))
	require.NoError(t, err)

	meta := NewCertMetadataFromX509(leaf.Cert)
	require.Equal(t, leaf.Cert.SerialNumber.Text(16), meta.SerialNumber)
	require.Equal(t, "example.com", meta.CommonName)
	require.Equal(t, "CN=Test CA", meta.IssuerDN)
	require.Equal(t, []string{"*.example.com", "example.com"}, meta.DNSNames)
	require.NotEmpty(t, meta.Fingerprint)
	require.False(t, meta.IsCA)
	require.Equal(t, leaf.Cert.NotBefore, meta.IssuedAt)
	require.Equal(t, leaf.Cert.NotAfter, meta.ExpiresAt)
	require.Greater(t, meta.TTL, leaf.Cert.NotAfter.Unix())

	caMeta := NewCertMetadataFromX509(ca.Cert)
	require.True(t, caMeta.IsCA)
	require.NotEqual(t, meta.Fingerprint, caMeta.Fingerprint)
}
