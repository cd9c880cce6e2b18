package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// errReplayMismatch is returned when a rebuilt ranking differs from the
// stored one.
var errReplayMismatch = errors.New("replayed ranking does not match the stored ranking")

func newReplayCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <respondent-id>",
		Short: "Rebuild a respondent's ranking from the judgment log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), root, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runReplay(ctx context.Context, root *rootOptions, id string, out, logOut io.Writer) error {
	a, err := openApp(ctx, root, logOut)
	if err != nil {
		return err
	}
	defer a.Close()

	survey, err := a.surveyService(nil)
	if err != nil {
		return err
	}
	result, err := survey.Replay(ctx, id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if result.Stored != nil && !result.Matches {
		return errReplayMismatch
	}
	return nil
}
