package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/selfeval/selfeval/internal/store"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect the local log of backend requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent backend requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		op, _ := cmd.Flags().GetString("op")
		since, _ := cmd.Flags().GetDuration("since")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		opts := store.QueryOpts{Limit: limit, Op: op}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}
		events, err := s.EventRepo().QueryRequests(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		printRequests(cmd.OutOrStdout(), events)
		return nil
	},
}

var requestsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show request counts, failures and latency per operation",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.EventRepo().RequestStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("query stats: %w", err)
		}
		printRequestStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	requestsListCmd.Flags().Int("limit", 20, "Maximum number of events to show")
	requestsListCmd.Flags().String("op", "", "Only show this operation (e.g. submit_answer)")
	requestsListCmd.Flags().Duration("since", 0, "Only show events newer than this (e.g. 1h)")

	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsStatsCmd)
}

func openStore() (*store.Store, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func printRequests(w io.Writer, events []store.RequestEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No requests recorded.")
		return
	}

	fmt.Fprintf(w, "%-5s  %-19s  %-20s  %-24s  %-7s  %-2s  %s\n",
		"ID", "Timestamp", "Op", "Evaluation", "Ms", "OK", "Error")
	fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, e := range events {
		ok := "✓"
		if !e.Success {
			ok = "✗"
		}
		fmt.Fprintf(w, "%-5d  %-19s  %-20s  %-24s  %-7d  %-2s  %s\n",
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Op,
			truncate(e.EvaluationID, 24),
			e.LatencyMs,
			ok,
			e.ErrorMessage,
		)
	}
}

func printRequestStats(w io.Writer, stats []store.RequestStat) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No requests recorded.")
		return
	}

	fmt.Fprintln(w, "Requests by Operation")
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "%-20s  %8s  %8s  %8s\n", "Op", "Calls", "Failed", "Avg Ms")
	fmt.Fprintln(w, strings.Repeat("─", 60))

	var calls, failures int
	for _, st := range stats {
		fmt.Fprintf(w, "%-20s  %8d  %8d  %8d\n", st.Op, st.Calls, st.Failures, st.AvgLatencyMs)
		calls += st.Calls
		failures += st.Failures
	}

	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "%-20s  %8d  %8d\n", "TOTAL", calls, failures)
}
