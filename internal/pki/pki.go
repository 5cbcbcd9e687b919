// Package pki issues a local certificate authority and the leaf certificates
// it signs. Keys are RSA-2048 and every certificate is signed with SHA-256.
package pki

import (
	"crypto/x509"
	"time"
)

const (
	// KeyBits is the RSA modulus size for every generated key.
	KeyBits = 2048

	// Validity is how long both CA and leaf certificates are valid.
	Validity = 365 * 24 * time.Hour

	// SignatureAlgorithm is used for the CA self-signature and all leaves.
	SignatureAlgorithm = x509.SHA256WithRSA
)

// CAKeyUsages are set on every generated CA.
const CAKeyUsages = x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature

// LeafKeyUsages covers RSA key exchange and signatures in TLS handshakes.
const LeafKeyUsages = x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment

// LeafExtKeyUsages marks leaves as TLS server certificates.
var LeafExtKeyUsages = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}

// Issuer creates CA and leaf certificates using the configured primitives.
// It carries no state between calls and is safe for concurrent use as long
// as its Primitives implementation is.
type Issuer struct {
	primitives Primitives
	now        func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithPrimitives replaces the key generation and randomness provider.
func WithPrimitives(p Primitives) Option {
	return func(i *Issuer) {
		i.primitives = p
	}
}

// WithClock overrides the issuance time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer returns an Issuer backed by crypto/rand and the wall clock unless
// overridden.
func NewIssuer(opts ...Option) *Issuer {
	i := &Issuer{
		primitives: SystemPrimitives{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// validityWindow returns [now, now+Validity] in UTC, truncated to the second.
func (i *Issuer) validityWindow() (time.Time, time.Time) {
	notBefore := i.now().UTC().Truncate(time.Second)
	return notBefore, notBefore.Add(Validity)
}
