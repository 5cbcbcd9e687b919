package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tlsca/internal/bootstrap"
	"github.com/wolfeidau/tlsca/internal/logger"
	"github.com/wolfeidau/tlsca/internal/store"
)

// RegistryCmd manages the DynamoDB registry of issued certificates
type RegistryCmd struct {
	CreateTable RegistryCreateTableCmd `cmd:"" help:"Create the registry table"`
	List        RegistryListCmd        `cmd:"" help:"List registered certificates"`
	Show        RegistryShowCmd        `cmd:"" help:"Show a registered certificate by serial number"`
}

type RegistryCreateTableCmd struct {
	RegistryTable string `name:"registry-table" required:"" help:"DynamoDB table recording issued certificates."`
	Clean         bool   `help:"Delete an existing table first."`

	AWSFlags
}

func (cmd *RegistryCreateTableCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	awsConfig, err := cmd.loadAWSConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	return bootstrap.CreateRegistryTable(ctx, dynamodb.NewFromConfig(awsConfig), cmd.RegistryTable, cmd.Clean)
}

type RegistryListCmd struct {
	RegistryTable string `name:"registry-table" required:"" help:"DynamoDB table recording issued certificates."`
	Issuer        string `help:"Only list certificates with this issuer DN (ex: CN=tlsca CA)."`
	Limit         int    `help:"Maximum number of certificates to list (0 lists all)." default:"0"`

	AWSFlags
}

func (cmd *RegistryListCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	awsConfig, err := cmd.loadAWSConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	return cmd.run(ctx, store.NewDynamoDBCertificateStore(dynamodb.NewFromConfig(awsConfig), cmd.RegistryTable), os.Stdout)
}

func (cmd *RegistryListCmd) run(ctx context.Context, certs store.CertificateStore, out io.Writer) error {
	list, err := certs.List(ctx, store.ListCertificatesOptions{IssuerDN: cmd.Issuer, Limit: cmd.Limit})
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(out, "No certificates found.")
		return nil
	}

	fmt.Fprintf(out, "%-34s %-30s %-5s %-20s %-20s\n", "Serial", "Common Name", "CA", "Issued At", "Expires At")
	fmt.Fprintln(out, strings.Repeat("─", 113))

	for _, cert := range list {
		cn := cert.CommonName
		if len(cn) > 30 {
			cn = cn[:27] + "..."
		}

		fmt.Fprintf(out, "%-34s %-30s %-5t %-20s %-20s\n",
			cert.SerialNumber,
			cn,
			cert.IsCA,
			cert.IssuedAt.Format("2006-01-02 15:04:05"),
			cert.ExpiresAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

type RegistryShowCmd struct {
	RegistryTable string `name:"registry-table" required:"" help:"DynamoDB table recording issued certificates."`
	Serial        string `arg:"" help:"Serial number in hex."`

	AWSFlags
}

func (cmd *RegistryShowCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	awsConfig, err := cmd.loadAWSConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	return cmd.run(ctx, store.NewDynamoDBCertificateStore(dynamodb.NewFromConfig(awsConfig), cmd.RegistryTable), os.Stdout)
}

func (cmd *RegistryShowCmd) run(ctx context.Context, certs store.CertificateStore, out io.Writer) error {
	cert, err := certs.Get(ctx, strings.ToLower(cmd.Serial))
	if err != nil {
		return fmt.Errorf("serial %s: %w", cmd.Serial, err)
	}

	fmt.Fprintf(out, "Serial:      %s\n", cert.SerialNumber)
	fmt.Fprintf(out, "Common Name: %s\n", cert.CommonName)
	fmt.Fprintf(out, "Issuer:      %s\n", cert.IssuerDN)
	fmt.Fprintf(out, "DNS Names:   %s\n", strings.Join(cert.DNSNames, ", "))
	fmt.Fprintf(out, "CA:          %t\n", cert.IsCA)
	fmt.Fprintf(out, "Fingerprint: %s\n", cert.Fingerprint)
	fmt.Fprintf(out, "Issued At:   %s\n", cert.IssuedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Expires At:  %s\n", cert.ExpiresAt.Format("2006-01-02 15:04:05"))

	return nil
}
