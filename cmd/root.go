package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/selfeval/selfeval/internal/config"
	"github.com/selfeval/selfeval/internal/store"
)

// cfg is loaded before every command runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "selfeval",
	Short: "University self-evaluation in the terminal",
	Long: "selfeval lets students evaluate themselves section by section " +
		"(soft skills, adaptive skills, technical skills) against the " +
		"university's self-evaluation service.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, "")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a config file (default: ./selfeval.yaml or $XDG_CONFIG_HOME/selfeval/selfeval.yaml)")
	flags.String("db", "", "Path to SQLite database file (overrides SELFEVAL_DB env var)")
	flags.String("api-url", "", "Base URL of the self-evaluation API")
	flags.Bool("offline", false, "Use the built-in demo backend instead of the API")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error, disabled)")

	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(sectionsCmd)
	rootCmd.AddCommand(evaluationsCmd)
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration and applies flag overrides on top.
func loadConfig(cmd *cobra.Command) error {
	file, _ := cmd.Flags().GetString("config")
	c, err := config.Load(config.Options{File: file})
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("api-url") {
		c.APIURL, _ = cmd.Flags().GetString("api-url")
	}
	if cmd.Flags().Changed("offline") {
		c.Offline, _ = cmd.Flags().GetBool("offline")
	}
	if cmd.Flags().Changed("log-level") {
		c.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		c.DB = p
	}

	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

// resolveDBPath returns the database path using --db flag or the db config
// key (highest priority), then SELFEVAL_DB env var, then the default XDG path.
func resolveDBPath() (string, error) {
	if cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	p, err := store.DefaultDBPath()
	if err != nil {
		return "", fmt.Errorf("resolve database path: %w", err)
	}
	return p, nil
}
