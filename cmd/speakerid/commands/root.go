// Package commands implements the speakerid command line.
package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerid/app"
	"github.com/kbukum/speakerid/bootstrap"
	"github.com/kbukum/speakerid/version"
)

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "speakerid",
	Short: "Speaker identity resolution for meeting transcripts",
	Long: `speakerid maps the anonymous speaker labels of diarized meeting
transcripts onto known people, learns voice fingerprints from manual
assignments and suggests identities for new meetings.

Configuration is read from config.yml (or --config) and SPEAKERID_*
environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version.GetVersionInfo().Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: search ./config.yml, ./cmd/speakerid/config.yml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file to load before the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration using the persistent flags.
func loadConfig() (*app.Config, error) {
	return app.Load(app.LoadOptions{ConfigFile: configFile, EnvFile: envFile})
}

// newTaskApp builds an app for a one-shot command. Logs go to stderr so
// stdout carries only command output.
func newTaskApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Logging.Output = "stderr"
	return app.New(cfg, bootstrap.WithoutSummary())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo().String())
		return err
	},
}
