package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/selfeval/selfeval/internal/app"
	"github.com/selfeval/selfeval/internal/auth"
	"github.com/selfeval/selfeval/internal/screens/evaluation"
)

var takeCmd = &cobra.Command{
	Use:   "take <section-id>",
	Short: "Open a section's evaluation directly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, args[0])
	},
}

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command, sectionID string) error {
	d, err := openDeps(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer d.Close()

	if d.user.Role == auth.RoleAdmin {
		fmt.Fprintln(cmd.OutOrStdout(), "Administration is only available in the web portal.")
		return nil
	}

	d.log.Info().Str("user", d.user.ID).Str("section", sectionID).Msg("starting")
	return app.Run(app.Options{
		Deps: evaluation.Deps{
			Client: d.client,
			Drafts: d.store.DraftRepo(),
			Logger: d.log,
		},
		User:      d.displayName(),
		SectionID: sectionID,
	})
}
