package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/chatline/internal"
	"github.com/iksnae/chatline/internal/backend"
	"github.com/iksnae/chatline/internal/config"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	apiURL  string
	envFile string
	cfg     *config.Config
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatline",
	Short: "Chat with, share and archive conversations on a chat backend",
	Long: `A CLI client for a streaming chat backend.

Features:
  • Chat with streamed replies, one-shot or interactively
  • Browse, show and delete server-side sessions
  • Export sessions as compact JSON (optionally gzipped), JSONL, Markdown or YAML
  • Import exported chat files from disk or a URL
  • Share sessions and follow shared sessions as they change
  • Upload and search documents the backend parses

Quick Start:
  chatline chat "Hello there"          # Start a new conversation
  chatline sessions                    # List sessions
  chatline export <session-id> --gzip  # Archive a session

Configuration is read from CHATLINE_* environment variables and an optional .env file.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)

		loaded, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if apiURL != "" {
			loaded.APIURL = apiURL
		}
		cfg = loaded
		internal.LogDebug("using API at %s", cfg.APIURL)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		internal.SyncLogs()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt cancels the command's context so streams and watches stop cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

// newClient builds a backend client from the loaded configuration
func newClient() *backend.Client {
	return backend.NewClient(cfg.APIURL, backend.WithTimeout(cfg.HTTPTimeout))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API root (overrides CHATLINE_API_URL)")
	rootCmd.PersistentFlags().StringVar(&envFile, "config", "", "Path to a .env file with CHATLINE_* settings")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
