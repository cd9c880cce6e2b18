package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newCatalogCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the configured items with their indices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(cmd.Context(), root, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runCatalog(ctx context.Context, root *rootOptions, out, logOut io.Writer) error {
	a, err := openApp(ctx, root, logOut)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.loaded.Config
	fmt.Fprintf(out, "%s (version %s)\n", cfg.Metadata.Name, cfg.Version)
	for _, item := range a.loaded.Catalog.Items() {
		fmt.Fprintf(out, "%3d  %s\n", item.Index, item.Name)
	}
	return nil
}
