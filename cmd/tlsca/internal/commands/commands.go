package commands

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

type Globals struct {
	Debug   bool
	Version string
}

// AWSFlags configures clients for the optional AWS backed sources.
type AWSFlags struct {
	AWSRegion   string `name:"aws-region" help:"AWS region" default:"us-east-1" env:"AWS_REGION"`
	AWSEndpoint string `name:"aws-endpoint" help:"AWS endpoint (for LocalStack)" env:"AWS_ENDPOINT" default:""`
}

// loadAWSConfig loads AWS configuration with optional endpoint override
func (f AWSFlags) loadAWSConfig(ctx context.Context) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(f.AWSRegion),
	}

	if f.AWSEndpoint != "" {
		// Use BaseEndpoint for LocalStack support
		opts = append(opts, config.WithBaseEndpoint(f.AWSEndpoint))
	}

	return config.LoadDefaultConfig(ctx, opts...)
}
