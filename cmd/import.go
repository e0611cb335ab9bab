package cmd

import (
	"fmt"
	"time"

	"github.com/iksnae/chatline/internal"
	"github.com/iksnae/chatline/internal/backend"
	"github.com/iksnae/chatline/internal/export"
	"github.com/spf13/cobra"
)

var (
	importToServer bool
	importLimit    int
)

var importCmd = &cobra.Command{
	Use:   "import <file|url>",
	Short: "Import an exported chat file",
	Long: `Load a chat file (.json or .json.gz) from disk or an http(s) URL and show it.

With --server the document is also uploaded to the backend, which stores it
as a new session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := newClient()
		store := internal.NewStore()
		importer := export.NewImporter(store, client)

		var (
			doc    *export.Document
			result *backend.ImportResult
		)
		steps := []internal.ProgressStep{{
			Message: fmt.Sprintf("Loading %s", args[0]),
			Fn: func() error {
				var err error
				if doc, err = importer.Import(ctx, args[0]); err != nil {
					return fmt.Errorf("%s: %w", importer.Err(), err)
				}
				return nil
			},
		}}
		if importToServer {
			steps = append(steps, internal.ProgressStep{
				Message: "Storing the session on the backend",
				Fn: func() error {
					var err error
					result, err = client.ImportSession(ctx, doc)
					return err
				},
			})
		}
		if err := internal.ShowProgressWithSteps(ctx, steps); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		displaySessionHeader(out, doc.Title, doc.SessionID, time.Time{}, len(doc.Messages))
		displayTranscript(out, store.Messages(), importLimit)
		if n := len(store.Files()); n > 0 {
			_, _ = fmt.Fprintf(out, "%d file(s) attached\n", n)
		}
		if result != nil {
			_, _ = fmt.Fprintf(out, "Imported as session %s (%d message(s), %d file(s))\n",
				result.SessionID, result.ImportedMessages, result.ImportedFiles)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&importToServer, "server", false, "Store the imported session on the backend")
	importCmd.Flags().IntVarP(&importLimit, "limit", "n", 0, "Limit number of messages to show")
}
