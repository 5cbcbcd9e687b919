package pki

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyMismatch is returned when a private key does not correspond to
	// the certificate it was loaded with.
	ErrKeyMismatch = errors.New("private key does not match certificate")

	// ErrEncryptedKey is returned for password protected PEM keys.
	ErrEncryptedKey = errors.New("encrypted private keys are not supported")

	// ErrNotRSA is returned when a key or certificate carries a non-RSA key.
	ErrNotRSA = errors.New("key is not RSA")

	// ErrInvalidSAN is returned for a SAN that cannot be encoded as a
	// dNSName (IA5String).
	ErrInvalidSAN = errors.New("SAN must be an ASCII string")

	errNoPEMBlock = errors.New("no PEM block found")
)

// ParseError reports malformed PEM or DER input. Kind names what was being
// parsed, e.g. "certificate" or "private key".
type ParseError struct {
	Kind string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PrimitiveError wraps a failure from key generation, serial generation or
// signing. These are not expected in normal operation.
type PrimitiveError struct {
	Op  string
	Err error
}

func (e *PrimitiveError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PrimitiveError) Unwrap() error {
	return e.Err
}
