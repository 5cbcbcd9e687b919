package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/tlsca/cmd/tlsca/internal/commands"
	"github.com/wolfeidau/tlsca/internal/config"
)

var (
	version = "dev"
	cli     struct {
		Issue    commands.IssueCmd    `cmd:"" default:"withargs" help:"Generate a CA (or load one) and issue service certificates"`
		Verify   commands.VerifyCmd   `cmd:"" help:"Verify certificates chain to a CA"`
		Registry commands.RegistryCmd `cmd:"" help:"Manage the DynamoDB registry of issued certificates"`
		Config   kong.ConfigFlag      `help:"Load flag values from a YAML file."`
		Debug    bool                 `help:"Enable debug mode."`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("tlsca"),
		kong.Description("Generates CA and server certificates.\n\nExample:\n\n  tlsca -n 'My CA' -s example.dev -s api.example.dev -d ./certs"),
		kong.Configuration(config.YAML),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
