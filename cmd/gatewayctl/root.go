package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/upb/llm-gateway/app"
	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/internal/observability"
	"go.uber.org/zap"
)

// connector opens the store-backed dependencies used by the catalog and key commands
type connector func(ctx context.Context, logger *zap.Logger) (*app.Dependencies, error)

type options struct {
	passphrase string
	verbose    bool
	connect    connector
}

func newRootCmd(connect connector) *cobra.Command {
	opts := &options{connect: connect}

	root := &cobra.Command{
		Use:           "gatewayctl",
		Short:         "Operate the LLM gateway",
		Long:          "gatewayctl seeds the provider catalog, stores vendor API keys and encrypts or decrypts stored credentials.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.passphrase, "passphrase", "", "credential passphrase (default $CREDENTIAL_PASSPHRASE)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newEncryptCmd(opts))
	root.AddCommand(newDecryptCmd(opts))
	root.AddCommand(newHashCmd())
	root.AddCommand(newProvidersCmd(opts))
	root.AddCommand(newKeysCmd(opts))

	return root
}

func (o *options) logger() (*zap.Logger, error) {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	return observability.NewLogger(config.ObservabilityConfig{LogLevel: level, LogFormat: "console"})
}

func (o *options) security() config.SecurityConfig {
	if o.passphrase != "" {
		return config.SecurityConfig{CredentialPassphrase: o.passphrase}
	}
	return config.SecurityConfig{CredentialPassphrase: os.Getenv("CREDENTIAL_PASSPHRASE")}
}

// withDependencies runs fn over freshly wired dependencies and closes them afterwards
func (o *options) withDependencies(cmd *cobra.Command, fn func(ctx context.Context, deps *app.Dependencies) error) error {
	logger, err := o.logger()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	deps, err := o.connect(ctx, logger)
	if err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}
	defer func() { _ = deps.Close(ctx) }()

	return fn(ctx, deps)
}

// connectFromEnv loads the process configuration and wires the store.
// The catalog is only seeded through "providers seed".
func connectFromEnv(ctx context.Context, logger *zap.Logger) (*app.Dependencies, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, err
	}
	cfg.Gateway.SeedCatalog = false
	return app.NewDependencies(ctx, cfg, logger)
}
