package pki

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
	"math/big"
)

// Primitives provides the randomness-dependent operations used during
// issuance. Signing goes through the CA's crypto.Signer.
type Primitives interface {
	// GenerateKey returns a fresh RSA key of KeyBits with exponent 65537.
	GenerateKey() (*rsa.PrivateKey, error)

	// SerialNumber returns a positive random certificate serial.
	SerialNumber() (*big.Int, error)

	// Rand is the entropy source handed to the signer.
	Rand() io.Reader
}

// SystemPrimitives implements Primitives with crypto/rand.
type SystemPrimitives struct{}

var _ Primitives = SystemPrimitives{}

// GenerateKey returns a 2048-bit RSA key. rsa.GenerateKey always uses e=65537.
func (SystemPrimitives) GenerateKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, KeyBits)
}

// SerialNumber returns a random serial in [1, 2^128).
func (SystemPrimitives) SerialNumber() (*big.Int, error) {
	return randomSerial(rand.Reader)
}

func (SystemPrimitives) Rand() io.Reader {
	return rand.Reader
}

// randomSerial draws 128 bits from r. Zero is excluded because serials must
// be positive.
func randomSerial(r io.Reader) (*big.Int, error) {
	upper := new(big.Int).Lsh(big.NewInt(1), 128)
	upper.Sub(upper, big.NewInt(1))

	n, err := rand.Int(r, upper)
	if err != nil {
		return nil, fmt.Errorf("generate random serial: %w", err)
	}
	return n.Add(n, big.NewInt(1)), nil
}
