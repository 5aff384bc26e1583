package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/upb/llm-gateway/app"
	"github.com/upb/llm-gateway/catalog"
)

func newProvidersCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Manage provider records",
	}
	cmd.AddCommand(newProvidersListCmd(opts))
	cmd.AddCommand(newProvidersSeedCmd(opts))
	return cmd
}

func newProvidersListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List supported adapters and stored providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withDependencies(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				listing, err := deps.Gateway.ListProviders(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "supported: %s\n\n", strings.Join(listing.Supported, ", "))

				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tPRIORITY\tACTIVE\tMODELS")
				for _, p := range listing.Configured {
					fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%d\n", p.ID, p.Name, p.Priority, p.IsActive, len(p.Models))
				}
				return w.Flush()
			})
		},
	}
}

func newProvidersSeedCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert catalog providers that are not stored yet",
		Long:  "Seed inserts every catalog provider missing from the store. Existing rows are left untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadCatalog(file)
			if err != nil {
				return err
			}

			return opts.withDependencies(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				result, err := c.Seed(ctx, deps.Repos.Providers, deps.Factory.IsProviderSupported, deps.Logger)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, name := range result.Created {
					fmt.Fprintf(out, "created %s\n", name)
				}
				for _, name := range result.Skipped {
					fmt.Fprintf(out, "skipped %s (exists)\n", name)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file (default: bundled catalog)")
	return cmd
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return catalog.Parse(data)
}
