package pki

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"unicode/utf8"
)

// LegacyCASAN is the CA SAN used when the subject cannot be encoded as a
// dNSName.
const LegacyCASAN = "ZTP CA"

// CA holds the trust root used to sign leaves.
type CA struct {
	// Key is the CA private key when it is held in memory. It is nil when
	// signing is delegated to a remote signer.
	Key *rsa.PrivateKey

	// Signer signs leaf certificates. It is Key when Key is set.
	Signer crypto.Signer

	Cert *x509.Certificate
}

// CAOptions holds optional settings for CA generation.
type CAOptions struct {
	// DNSNames is the SAN list placed in the CA certificate. Defaults to the
	// CA subject, or LegacyCASAN when the subject is not ASCII.
	DNSNames []string
}

// GenerateCA creates a self-signed CA whose subject and issuer are CN=subject.
func (i *Issuer) GenerateCA(subject string) (*CA, error) {
	return i.GenerateCAWithOptions(subject, CAOptions{})
}

// GenerateCAWithOptions is like GenerateCA but allows the SAN list to be set.
func (i *Issuer) GenerateCAWithOptions(subject string, opts CAOptions) (*CA, error) {
	dnsNames := opts.DNSNames
	if dnsNames == nil {
		dnsNames = defaultCADNSNames(subject)
	}
	if err := CheckSANs(dnsNames); err != nil {
		return nil, err
	}

	key, err := i.primitives.GenerateKey()
	if err != nil {
		return nil, &PrimitiveError{Op: "generate CA key", Err: err}
	}

	serial, err := i.primitives.SerialNumber()
	if err != nil {
		return nil, &PrimitiveError{Op: "generate CA serial", Err: err}
	}

	notBefore, notAfter := i.validityWindow()
	name := pkix.Name{CommonName: subject}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               name,
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		DNSNames:              dnsNames,
		KeyUsage:              CAKeyUsages,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
		SignatureAlgorithm:    SignatureAlgorithm,
	}

	// Self-signed: the template is its own parent.
	der, err := x509.CreateCertificate(i.primitives.Rand(), template, template, &key.PublicKey, key)
	if err != nil {
		return nil, &PrimitiveError{Op: "sign CA certificate", Err: err}
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, &ParseError{Kind: "certificate", Err: err}
	}

	return &CA{
		Key:    key,
		Signer: key,
		Cert:   cert,
	}, nil
}

// defaultCADNSNames derives the CA SAN from subject when it fits a dNSName.
func defaultCADNSNames(subject string) []string {
	if isIA5String(subject) {
		return []string{subject}
	}
	return []string{LegacyCASAN}
}

// CheckSANs returns ErrInvalidSAN for the first name that is not an
// IA5String.
func CheckSANs(names []string) error {
	for _, name := range names {
		if !isIA5String(name) {
			return fmt.Errorf("%q: %w", name, ErrInvalidSAN)
		}
	}
	return nil
}

func isIA5String(s string) bool {
	for _, r := range s {
		if r >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// LoadCA parses a PEM certificate and an unencrypted PEM RSA private key and
// checks that they belong together.
func LoadCA(certPEM, keyPEM []byte) (*CA, error) {
	cert, err := DecodeCert(certPEM)
	if err != nil {
		return nil, err
	}

	key, err := DecodeKey(keyPEM)
	if err != nil {
		return nil, err
	}

	if err := verifyCertKeyPair(cert, key.Public()); err != nil {
		return nil, err
	}

	return &CA{
		Key:    key,
		Signer: key,
		Cert:   cert,
	}, nil
}

// LoadCAWithSigner parses a PEM CA certificate whose private key is only
// reachable through signer, e.g. a KMS key.
func LoadCAWithSigner(certPEM []byte, signer crypto.Signer) (*CA, error) {
	cert, err := DecodeCert(certPEM)
	if err != nil {
		return nil, err
	}

	if err := verifyCertKeyPair(cert, signer.Public()); err != nil {
		return nil, err
	}

	return &CA{
		Signer: signer,
		Cert:   cert,
	}, nil
}

// verifyCertKeyPair checks that a certificate's public key matches pub.
func verifyCertKeyPair(cert *x509.Certificate, pub crypto.PublicKey) error {
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("signing key: %w", ErrNotRSA)
	}

	certPub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("certificate public key: %w", ErrNotRSA)
	}

	if !rsaPub.Equal(certPub) {
		return fmt.Errorf("CA %q: %w", cert.Subject.CommonName, ErrKeyMismatch)
	}

	return nil
}
