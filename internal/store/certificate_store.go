package store

import (
	"context"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"sort"
	"time"
)

// CertMetadata represents metadata about an issued certificate
type CertMetadata struct {
	SerialNumber string
	CommonName   string
	IssuerDN     string
	DNSNames     []string
	Fingerprint  string
	IsCA         bool
	IssuedAt     time.Time
	ExpiresAt    time.Time
	TTL          int64 // Unix seconds for DynamoDB TTL
}

// CertificateStore records issued certificates so that serials stay unique
// within a CA's issued set.
type CertificateStore interface {
	// Get retrieves certificate metadata by serial number
	Get(ctx context.Context, serialNumber string) (*CertMetadata, error)

	// Register stores certificate metadata, failing with
	// ErrCertAlreadyExists if the serial is already present.
	Register(ctx context.Context, cert *CertMetadata) error

	// List returns registered certificates
	List(ctx context.Context, opts ListCertificatesOptions) ([]*CertMetadata, error)
}

// ListCertificatesOptions specifies filters for listing certificates
type ListCertificatesOptions struct {
	IssuerDN string // Filter by issuer (empty = all)
	Limit    int    // Max results (0 = no limit)
}

// Errors
var (
	ErrCertNotFound      = errors.New("certificate not found")
	ErrCertAlreadyExists = errors.New("certificate already exists")
)

// NewCertMetadataFromX509 creates CertMetadata from an X.509 certificate
func NewCertMetadataFromX509(cert *x509.Certificate) *CertMetadata {
	fingerprint := sha256.Sum256(cert.Raw)

	// TTL: 30 days after expiry
	ttl := cert.NotAfter.Add(30 * 24 * time.Hour).Unix()

	return &CertMetadata{
		SerialNumber: cert.SerialNumber.Text(16),
		CommonName:   cert.Subject.CommonName,
		IssuerDN:     cert.Issuer.String(),
		DNSNames:     append([]string(nil), cert.DNSNames...),
		Fingerprint:  base64.StdEncoding.EncodeToString(fingerprint[:]),
		IsCA:         cert.IsCA,
		IssuedAt:     cert.NotBefore,
		ExpiresAt:    cert.NotAfter,
		TTL:          ttl,
	}
}

func matchesFilter(cert *CertMetadata, opts ListCertificatesOptions) bool {
	return opts.IssuerDN == "" || cert.IssuerDN == opts.IssuerDN
}

// sortByIssued orders certificates oldest first, breaking ties by serial.
func sortByIssued(certs []*CertMetadata) {
	sort.SliceStable(certs, func(i, j int) bool {
		if certs[i].IssuedAt.Equal(certs[j].IssuedAt) {
			return certs[i].SerialNumber < certs[j].SerialNumber
		}
		return certs[i].IssuedAt.Before(certs[j].IssuedAt)
	})
}
