package pki

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

const (
	pemTypeCertificate   = "CERTIFICATE"
	pemTypeRSAPrivateKey = "RSA PRIVATE KEY"
	pemTypePrivateKey    = "PRIVATE KEY"
	pemTypeEncryptedKey  = "ENCRYPTED PRIVATE KEY"
)

// EncodeKey returns the unencrypted key as a PKCS#1 "RSA PRIVATE KEY" block,
// the traditional OpenSSL container.
func EncodeKey(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemTypeRSAPrivateKey,
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// EncodeCert returns the certificate as a PEM "CERTIFICATE" block.
func EncodeCert(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemTypeCertificate,
		Bytes: cert.Raw,
	})
}

// EncodeKeyAndCert returns the PEM key followed by the PEM certificate.
func EncodeKeyAndCert(key *rsa.PrivateKey, cert *x509.Certificate) []byte {
	out := EncodeKey(key)
	return append(out, EncodeCert(cert)...)
}

// DecodeCert parses the first PEM block in data as a certificate.
func DecodeCert(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &ParseError{Kind: "certificate", Err: errNoPEMBlock}
	}
	if block.Type != pemTypeCertificate {
		return nil, &ParseError{Kind: "certificate", Err: fmt.Errorf("unexpected PEM type %q", block.Type)}
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, &ParseError{Kind: "certificate", Err: err}
	}
	return cert, nil
}

// DecodeKey parses the first PEM block in data as an unencrypted RSA private
// key in either PKCS#1 or PKCS#8 form.
func DecodeKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &ParseError{Kind: "private key", Err: errNoPEMBlock}
	}
	if block.Type == pemTypeEncryptedKey || strings.Contains(block.Headers["Proc-Type"], "ENCRYPTED") {
		return nil, &ParseError{Kind: "private key", Err: ErrEncryptedKey}
	}

	switch block.Type {
	case pemTypeRSAPrivateKey:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, &ParseError{Kind: "private key", Err: err}
		}
		return key, nil
	case pemTypePrivateKey:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, &ParseError{Kind: "private key", Err: err}
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, &ParseError{Kind: "private key", Err: fmt.Errorf("%w (got %T)", ErrNotRSA, parsed)}
		}
		return key, nil
	default:
		return nil, &ParseError{Kind: "private key", Err: fmt.Errorf("unsupported PEM type %q", block.Type)}
	}
}
