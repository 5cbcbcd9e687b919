package pki

import (
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
)

// Leaf holds a server certificate and its private key.
type Leaf struct {
	Key  *rsa.PrivateKey
	Cert *x509.Certificate
}

// IssueLeaf generates a key for subject and a certificate for it signed by
// ca. A nil sans defaults to []string{subject}; any other value, including an
// empty slice, is used verbatim. The issuer name is copied from ca.Cert.
func (i *Issuer) IssueLeaf(ca *CA, subject string, sans []string) (*Leaf, error) {
	if ca == nil || ca.Cert == nil || ca.Signer == nil {
		return nil, errors.New("issue leaf: CA not initialized")
	}

	if sans == nil {
		sans = []string{subject}
	}

	key, err := i.primitives.GenerateKey()
	if err != nil {
		return nil, &PrimitiveError{Op: "generate leaf key", Err: err}
	}

	serial, err := i.primitives.SerialNumber()
	if err != nil {
		return nil, &PrimitiveError{Op: "generate leaf serial", Err: err}
	}

	notBefore, notAfter := i.validityWindow()

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: subject},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		DNSNames:              sans,
		KeyUsage:              LeafKeyUsages,
		ExtKeyUsage:           LeafExtKeyUsages,
		BasicConstraintsValid: true,
		IsCA:                  false,
		SignatureAlgorithm:    SignatureAlgorithm,
	}

	der, err := x509.CreateCertificate(i.primitives.Rand(), template, ca.Cert, &key.PublicKey, ca.Signer)
	if err != nil {
		return nil, &PrimitiveError{Op: "sign leaf certificate", Err: err}
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, &ParseError{Kind: "certificate", Err: err}
	}

	return &Leaf{
		Key:  key,
		Cert: cert,
	}, nil
}
