package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/selfeval/selfeval/internal/model"
)

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List the sections available for self-evaluation",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		sections, err := d.client.ListSections(cmd.Context())
		if err != nil {
			return fmt.Errorf("list sections: %w", err)
		}
		printSections(cmd.OutOrStdout(), sections)
		return nil
	},
}

var evaluationsCmd = &cobra.Command{
	Use:   "evaluations",
	Short: "List your evaluations and their results",
	RunE: func(cmd *cobra.Command, args []string) error {
		sectionID, _ := cmd.Flags().GetString("section")

		d, err := openDeps(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		evaluations, err := d.client.ListEvaluations(cmd.Context(), sectionID)
		if err != nil {
			return fmt.Errorf("list evaluations: %w", err)
		}
		printEvaluations(cmd.OutOrStdout(), evaluations)
		return nil
	},
}

func init() {
	evaluationsCmd.Flags().String("section", "", "Only show evaluations of this section")
}

func printSections(w io.Writer, sections []model.Section) {
	if len(sections) == 0 {
		fmt.Fprintln(w, "No sections found.")
		return
	}
	fmt.Fprintf(w, "%-20s  %-28s  %s\n", "ID", "Name", "Description")
	fmt.Fprintln(w, strings.Repeat("─", 80))
	for _, s := range sections {
		fmt.Fprintf(w, "%-20s  %-28s  %s\n", truncate(s.ID, 20), truncate(s.Name, 28), s.Description)
	}
}

func printEvaluations(w io.Writer, evaluations []model.Evaluation) {
	if len(evaluations) == 0 {
		fmt.Fprintln(w, "No evaluations found.")
		return
	}
	fmt.Fprintf(w, "%-24s  %-20s  %-12s  %-16s  %9s  %s\n",
		"ID", "Section", "Status", "Created", "Score", "Level")
	fmt.Fprintln(w, strings.Repeat("─", 100))
	for _, e := range evaluations {
		score := "-"
		if pct, ok := e.Percent(); ok {
			score = fmt.Sprintf("%.0f%%", pct)
		}
		fmt.Fprintf(w, "%-24s  %-20s  %-12s  %-16s  %9s  %s\n",
			truncate(e.ID, 24),
			truncate(e.Section.ID(), 20),
			e.Status,
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			score,
			e.Level.Label(),
		)
	}
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
