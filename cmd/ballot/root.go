package main

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/survey.yaml"

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
	getenv     func(string) string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{getenv: os.Getenv})
}

func newRootCmdWith(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ballot",
		Short: "Pairwise ranking survey server",
		Long: `ballot asks each respondent to compare items two at a time until a
complete ranking with ties can be derived, then aggregates the rankings of
every respondent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to the survey configuration")

	cmd.AddCommand(
		newServeCmd(opts),
		newResultsCmd(opts),
		newReplayCmd(opts),
		newCatalogCmd(opts),
	)
	return cmd
}
