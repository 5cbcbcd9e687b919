// Package camaterial loads existing CA certificate and key material from
// local files or AWS SSM Parameter Store.
package camaterial

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/afero"
	"github.com/wolfeidau/tlsca/internal/store"
)

var (
	// ErrPartialOverride is returned when a CA certificate is supplied
	// without a key source, or the other way round.
	ErrPartialOverride = errors.New("CA certificate and key must be supplied together")

	// ErrConflictingSources is returned when more than one source is given
	// for the certificate or for the key.
	ErrConflictingSources = errors.New("conflicting CA material sources")
)

// SSMAPI is the subset of the SSM client used to fetch parameters.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

var _ SSMAPI = (*ssm.Client)(nil)

// Config for loading CA material
type Config struct {
	// File paths (for local development)
	CACertPath string
	CAKeyPath  string

	// SSM parameter names (for production)
	CACertSSM string
	CAKeySSM  string

	// KMSKeyID names a KMS key that holds the CA private key. When set no
	// key material is loaded.
	KMSKeyID string
}

// Material holds PEM encoded CA certificate and key data in memory. KeyPEM
// is nil when the key lives in KMS.
type Material struct {
	CertPEM []byte
	KeyPEM  []byte
}

// Enabled reports whether any existing CA material was requested.
func (c Config) Enabled() bool {
	return c.CACertPath != "" || c.CAKeyPath != "" ||
		c.CACertSSM != "" || c.CAKeySSM != "" ||
		c.KMSKeyID != ""
}

// UsesSSM reports whether any material comes from SSM.
func (c Config) UsesSSM() bool {
	return c.CACertSSM != "" || c.CAKeySSM != ""
}

// Validate rejects half-specified or ambiguous overrides.
func (c Config) Validate() error {
	certSources := count(c.CACertPath, c.CACertSSM)
	keySources := count(c.CAKeyPath, c.CAKeySSM, c.KMSKeyID)

	if certSources > 1 {
		return fmt.Errorf("%w: both a CA certificate file and SSM parameter were given", ErrConflictingSources)
	}
	if keySources > 1 {
		return fmt.Errorf("%w: give only one of a CA key file, SSM parameter or KMS key", ErrConflictingSources)
	}
	if certSources != keySources {
		return ErrPartialOverride
	}
	return nil
}

// Load reads CA material from SSM or files. client may be nil when cfg does
// not reference SSM.
func Load(ctx context.Context, cfg Config, fs afero.Fs, client SSMAPI) (*Material, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.UsesSSM() && client == nil {
		return nil, errors.New("SSM client is required to load CA material from SSM")
	}

	m := &Material{}

	var err error
	switch {
	case cfg.CACertSSM != "":
		m.CertPEM, err = getParameter(ctx, client, cfg.CACertSSM)
		if err != nil {
			return nil, fmt.Errorf("failed to load CA cert from SSM: %w", err)
		}
	case cfg.CACertPath != "":
		m.CertPEM, err = store.ReadFile(fs, cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
	}

	switch {
	case cfg.CAKeySSM != "":
		m.KeyPEM, err = getParameter(ctx, client, cfg.CAKeySSM)
		if err != nil {
			return nil, fmt.Errorf("failed to load CA key from SSM: %w", err)
		}
	case cfg.CAKeyPath != "":
		m.KeyPEM, err = store.ReadFile(fs, cfg.CAKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA key: %w", err)
		}
	}

	return m, nil
}

// getParameter fetches a parameter from SSM, decrypting SecureStrings
func getParameter(ctx context.Context, client SSMAPI, name string) ([]byte, error) {
	output, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if output.Parameter == nil || output.Parameter.Value == nil {
		return nil, fmt.Errorf("parameter %s has no value", name)
	}
	return []byte(*output.Parameter.Value), nil
}

func count(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}
