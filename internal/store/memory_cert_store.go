package store

import (
	"context"
	"sync"
)

// MemoryCertificateStore is an in-memory implementation of CertificateStore.
// It tracks serials for the lifetime of a single run.
type MemoryCertificateStore struct {
	mu    sync.RWMutex
	certs map[string]*CertMetadata // indexed by serial number
	order []string
}

// NewMemoryCertificateStore creates a new in-memory certificate store
func NewMemoryCertificateStore() *MemoryCertificateStore {
	return &MemoryCertificateStore{
		certs: make(map[string]*CertMetadata),
	}
}

// Get retrieves certificate metadata by serial number
func (s *MemoryCertificateStore) Get(ctx context.Context, serialNumber string) (*CertMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, exists := s.certs[serialNumber]
	if !exists {
		return nil, ErrCertNotFound
	}

	// Return a copy to avoid external modifications
	return copyCert(cert), nil
}

// Register stores certificate metadata
func (s *MemoryCertificateStore) Register(ctx context.Context, cert *CertMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.certs[cert.SerialNumber]; exists {
		return ErrCertAlreadyExists
	}

	s.certs[cert.SerialNumber] = copyCert(cert)
	s.order = append(s.order, cert.SerialNumber)

	return nil
}

// List returns registered certificates in registration order
func (s *MemoryCertificateStore) List(ctx context.Context, opts ListCertificatesOptions) ([]*CertMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*CertMetadata{}
	for _, serial := range s.order {
		cert := s.certs[serial]
		if !matchesFilter(cert, opts) {
			continue
		}

		result = append(result, copyCert(cert))

		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}

	return result, nil
}

// copyCert creates a deep copy of a certificate metadata
func copyCert(cert *CertMetadata) *CertMetadata {
	c := *cert
	c.DNSNames = append([]string(nil), cert.DNSNames...)
	return &c
}
