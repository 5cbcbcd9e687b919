package commands

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/wolfeidau/tlsca/internal/logger"
	"github.com/wolfeidau/tlsca/internal/pki"
	"github.com/wolfeidau/tlsca/internal/store"
)

// VerifyCmd checks that certificates chain to a CA for server auth
type VerifyCmd struct {
	CACert string   `name:"ca-cert" required:"" help:"The CA certificate to verify against."`
	Certs  []string `arg:"" name:"cert" help:"Certificate, or key and certificate bundle, files to verify."`
}

// Run executes the verify command
func (cmd *VerifyCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	return cmd.run(ctx, afero.NewOsFs(), os.Stdout, time.Now())
}

func (cmd *VerifyCmd) run(_ context.Context, fs afero.Fs, out io.Writer, now time.Time) error {
	caPEM, err := store.ReadFile(fs, cmd.CACert)
	if err != nil {
		return err
	}

	caCert, err := pki.DecodeCert(caPEM)
	if err != nil {
		return fmt.Errorf("failed to load CA certificate: %w", err)
	}

	roots := x509.NewCertPool()
	roots.AddCert(caCert)

	failed := 0
	for _, path := range cmd.Certs {
		cert, err := verifyFile(fs, path, roots, now)
		if err != nil {
			failed++
			log.Error().Err(err).Str("path", path).Msg("Certificate failed verification")
			fmt.Fprintf(out, "%s: FAILED: %v\n", path, err)
			continue
		}

		fmt.Fprintf(out, "%s: OK subject=%q sans=%s expires=%s\n",
			path, cert.Subject.String(), strings.Join(cert.DNSNames, ","), cert.NotAfter.UTC().Format(time.RFC3339))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d certificates failed verification", failed, len(cmd.Certs))
	}

	return nil
}

func verifyFile(fs afero.Fs, path string, roots *x509.CertPool, now time.Time) (*x509.Certificate, error) {
	data, err := store.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	cert, err := firstCertificate(data)
	if err != nil {
		return nil, err
	}

	_, err = cert.Verify(x509.VerifyOptions{
		Roots:       roots,
		CurrentTime: now,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	if err != nil {
		return nil, err
	}

	return cert, nil
}

// firstCertificate returns the first CERTIFICATE block, skipping the key
// block at the head of a bundle.
func firstCertificate(data []byte) (*x509.Certificate, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errors.New("no CERTIFICATE block found")
		}
		if block.Type == "CERTIFICATE" {
			return pki.DecodeCert(pem.EncodeToMemory(block))
		}
	}
}
