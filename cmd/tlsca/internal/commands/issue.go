package commands

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/wolfeidau/tlsca/internal/camaterial"
	"github.com/wolfeidau/tlsca/internal/logger"
	"github.com/wolfeidau/tlsca/internal/pki"
	"github.com/wolfeidau/tlsca/internal/store"
)

// caBasename is the file basename for a generated CA.
const caBasename = "ca"

// IssueCmd generates or loads a CA and issues one certificate per service
type IssueCmd struct {
	CAName          string   `name:"ca-name" short:"n" help:"The subject for the CA certificate." default:"tlsca CA"`
	Services        []string `name:"services" short:"s" help:"The services for which to generate certificates. A '*.' prefix requests a wildcard." placeholder:"NAME"`
	OutputDirectory string   `name:"output-directory" short:"d" help:"The directory to write the certificates to." default:"certs"`

	CACert     string   `name:"ca-cert" help:"The path to an existing CA certificate file. (ex: ca.crt)" group:"Existing CA"`
	CAKey      string   `name:"ca-key" help:"The path to an existing CA key file. (ex: ca.key)" group:"Existing CA"`
	CACertSSM  string   `name:"ca-cert-ssm" help:"SSM parameter holding an existing CA certificate." group:"Existing CA"`
	CAKeySSM   string   `name:"ca-key-ssm" help:"SSM parameter holding an existing CA key." group:"Existing CA"`
	CAKMSKeyID string   `name:"ca-kms-key-id" help:"KMS key holding the CA private key; requires --ca-cert or --ca-cert-ssm." group:"Existing CA"`
	CASAN      []string `name:"ca-san" help:"DNS names for a generated CA certificate (defaults to the CA name)."`

	Bundle        bool   `name:"bundle" help:"Also write <name>.pem holding the key followed by the certificate."`
	RegistryTable string `name:"registry-table" help:"DynamoDB table recording issued certificates."`

	AWSFlags
}

// issueDeps holds collaborators that tests replace.
type issueDeps struct {
	fs     afero.Fs
	out    io.Writer
	issuer *pki.Issuer
	ssm    camaterial.SSMAPI
	kms    pki.KMSAPI
	dynamo store.DynamoDBAPI
}

// Validate rejects half-specified CA overrides before anything is written.
func (cmd *IssueCmd) Validate() error {
	if err := cmd.materialConfig().Validate(); err != nil {
		return err
	}
	return pki.CheckSANs(cmd.CASAN)
}

// Run executes the issue command
func (cmd *IssueCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	deps := issueDeps{
		fs:     afero.NewOsFs(),
		out:    os.Stdout,
		issuer: pki.NewIssuer(),
	}

	if cmd.needsAWS() {
		awsConfig, err := cmd.loadAWSConfig(ctx)
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		deps.ssm = ssm.NewFromConfig(awsConfig)
		deps.kms = kms.NewFromConfig(awsConfig)
		deps.dynamo = dynamodb.NewFromConfig(awsConfig)
	}

	return cmd.run(ctx, deps)
}

func (cmd *IssueCmd) run(ctx context.Context, deps issueDeps) error {
	src := cmd.materialConfig()
	if err := src.Validate(); err != nil {
		return err
	}
	if err := pki.CheckSANs(cmd.CASAN); err != nil {
		return err
	}

	registry, err := cmd.registries(deps)
	if err != nil {
		return err
	}

	files := store.NewFileStore(deps.fs, cmd.OutputDirectory)
	if err := files.Prepare(); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var ca *pki.CA
	if src.Enabled() {
		ca, err = cmd.loadCA(ctx, src, deps)
		if err != nil {
			return fmt.Errorf("failed to load CA: %w", err)
		}
	} else {
		ca, err = cmd.generateCA(ctx, deps.issuer, files, registry)
		if err != nil {
			return err
		}
	}

	for _, name := range cmd.Services {
		if err := cmd.issueService(ctx, deps.issuer, ca, pki.ParseService(name), files, registry); err != nil {
			return fmt.Errorf("failed to issue certificate for %s: %w", name, err)
		}
	}

	abs, err := files.AbsDir()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(deps.out, "Certificates created in: %s\n", abs)
	return err
}

// generateCA creates a new CA and writes ca.crt and ca.key
func (cmd *IssueCmd) generateCA(ctx context.Context, issuer *pki.Issuer, files *store.FileStore, registry []store.CertificateStore) (*pki.CA, error) {
	log.Info().Str("subject", cmd.CAName).Msg("Generating new CA certificate...")

	opts := pki.CAOptions{}
	if len(cmd.CASAN) > 0 {
		opts.DNSNames = cmd.CASAN
	}

	ca, err := issuer.GenerateCAWithOptions(cmd.CAName, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CA certificate: %w", err)
	}

	if err := register(ctx, registry, ca.Cert); err != nil {
		return nil, err
	}

	certPath, err := files.WriteCertificate(caBasename, ca.Cert)
	if err != nil {
		return nil, fmt.Errorf("failed to save CA certificate: %w", err)
	}

	keyPath, err := files.WriteKey(caBasename, ca.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to save CA key: %w", err)
	}

	log.Info().
		Str("path_cert", certPath).
		Str("path_key", keyPath).
		Str("serial_number", ca.Cert.SerialNumber.Text(16)).
		Msg("Generated and saved CA certificate")

	return ca, nil
}

// loadCA builds the CA from existing material. Nothing is written for a
// loaded CA.
func (cmd *IssueCmd) loadCA(ctx context.Context, src camaterial.Config, deps issueDeps) (*pki.CA, error) {
	material, err := camaterial.Load(ctx, src, deps.fs, deps.ssm)
	if err != nil {
		return nil, err
	}

	var ca *pki.CA
	if src.KMSKeyID != "" {
		if deps.kms == nil {
			return nil, errors.New("KMS client is required for --ca-kms-key-id")
		}

		signer, err := pki.NewKMSSigner(ctx, deps.kms, src.KMSKeyID)
		if err != nil {
			return nil, err
		}

		ca, err = pki.LoadCAWithSigner(material.CertPEM, signer)
		if err != nil {
			return nil, err
		}

		log.Info().Str("kms_key_id", src.KMSKeyID).Msg("Using KMS key for CA signing")
	} else {
		ca, err = pki.LoadCA(material.CertPEM, material.KeyPEM)
		if err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("subject", ca.Cert.Subject.String()).
		Time("not_after", ca.Cert.NotAfter).
		Msg("Using existing CA certificate")

	return ca, nil
}

// issueService issues, registers and saves a single leaf
func (cmd *IssueCmd) issueService(ctx context.Context, issuer *pki.Issuer, ca *pki.CA, svc pki.Service, files *store.FileStore, registry []store.CertificateStore) error {
	leaf, err := issuer.IssueService(ca, svc)
	if err != nil {
		return err
	}

	if err := register(ctx, registry, leaf.Cert); err != nil {
		return err
	}

	certPath, err := files.WriteCertificate(svc.Basename, leaf.Cert)
	if err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}

	keyPath, err := files.WriteKey(svc.Basename, leaf.Key)
	if err != nil {
		return fmt.Errorf("failed to save key: %w", err)
	}

	if cmd.Bundle {
		bundlePath, err := files.WriteBundle(svc.Basename, leaf.Key, leaf.Cert)
		if err != nil {
			return fmt.Errorf("failed to save bundle: %w", err)
		}
		log.Debug().Str("path_bundle", bundlePath).Msg("Saved key and certificate bundle")
	}

	log.Info().
		Str("service", svc.Name).
		Str("common_name", svc.CommonName).
		Strs("sans", leaf.Cert.DNSNames).
		Str("path_cert", certPath).
		Str("path_key", keyPath).
		Msg("Generated and saved service certificate")

	return nil
}

// register records cert in every registry; a serial collision aborts the run.
func register(ctx context.Context, registry []store.CertificateStore, cert *x509.Certificate) error {
	meta := store.NewCertMetadataFromX509(cert)
	for _, r := range registry {
		if err := r.Register(ctx, meta); err != nil {
			if errors.Is(err, store.ErrCertAlreadyExists) {
				return fmt.Errorf("serial %s already issued: %w", meta.SerialNumber, err)
			}
			return fmt.Errorf("failed to register certificate: %w", err)
		}
	}
	return nil
}

func (cmd *IssueCmd) materialConfig() camaterial.Config {
	return camaterial.Config{
		CACertPath: cmd.CACert,
		CAKeyPath:  cmd.CAKey,
		CACertSSM:  cmd.CACertSSM,
		CAKeySSM:   cmd.CAKeySSM,
		KMSKeyID:   cmd.CAKMSKeyID,
	}
}

func (cmd *IssueCmd) needsAWS() bool {
	src := cmd.materialConfig()
	return src.UsesSSM() || src.KMSKeyID != "" || cmd.RegistryTable != ""
}

// registries returns the in-run registry plus DynamoDB when configured
func (cmd *IssueCmd) registries(deps issueDeps) ([]store.CertificateStore, error) {
	registry := []store.CertificateStore{store.NewMemoryCertificateStore()}
	if cmd.RegistryTable == "" {
		return registry, nil
	}
	if deps.dynamo == nil {
		return nil, errors.New("DynamoDB client is required for --registry-table")
	}
	return append(registry, store.NewDynamoDBCertificateStore(deps.dynamo, cmd.RegistryTable)), nil
}
