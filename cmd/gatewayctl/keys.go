package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/upb/llm-gateway/app"
	"github.com/upb/llm-gateway/repositories"
	"github.com/upb/llm-gateway/services/gateway"
)

func newKeysCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored vendor API keys",
	}
	cmd.AddCommand(newKeysStoreCmd(opts))
	return cmd
}

func newKeysStoreCmd(opts *options) *cobra.Command {
	var (
		providerName string
		apiKey       string
		validate     bool
		expiresIn    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Encrypt and store an API key, replacing the provider's active key",
		Long:  "Store encrypts an API key and makes it the provider's active key. Without --key the key is read from stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if apiKey == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading key from stdin: %w", err)
				}
				apiKey = strings.TrimSpace(line)
			}

			return opts.withDependencies(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				provider, err := deps.Repos.Providers.GetByName(ctx, strings.ToLower(providerName))
				if err != nil {
					if errors.Is(err, repositories.ErrNotFound) {
						return fmt.Errorf("provider %q is not stored; run \"gatewayctl providers seed\" first", providerName)
					}
					return err
				}

				req := &gateway.StoreAPIKeyRequest{
					ProviderID: provider.ID,
					APIKey:     apiKey,
					Validate:   validate,
				}
				if expiresIn > 0 {
					expiresAt := time.Now().Add(expiresIn)
					req.ExpiresAt = &expiresAt
				}

				stored, err := deps.Gateway.StoreAPIKey(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored key %s for %s (fingerprint %s, replaced %d)\n",
					stored.ID, provider.Name, stored.Fingerprint, stored.Replaced)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "provider name, e.g. openai")
	cmd.Flags().StringVar(&apiKey, "key", "", "API key (read from stdin when empty)")
	cmd.Flags().BoolVar(&validate, "validate", false, "check the key against the vendor before storing")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "key lifetime, e.g. 720h")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}
