package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/chatline/internal"
	"github.com/iksnae/chatline/internal/export"
	"github.com/spf13/cobra"
)

var archiveDir string

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage exported chat files",
	Long:  `List, show and remove the JSON exports kept in the archive directory.`,
}

func archiveManager() *internal.ArchiveManager {
	dir := archiveDir
	if dir == "" {
		dir = cfg.ExportDir
	}
	return internal.NewArchiveManager(dir)
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := archiveManager().List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(out, headerStyle.Render("📦 Archive is empty"))
			return nil
		}

		_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📦 %d archived session(s)", len(entries))))
		_, _ = fmt.Fprintln(out)
		tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(tw, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Size")+"\t"+titleStyle.Render("Exported")+"\t")
		now := time.Now()
		for _, e := range entries {
			title := e.Title
			if title == "" {
				title = "Untitled"
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
				idStyle.Render(e.SessionID), title, countStyle.Render(fmt.Sprint(e.MessageCount)),
				humanize.Bytes(uint64(e.Size)), dateStyle.Render(relativeTime(e.ExportedAt, now)))
		}
		return tw.Flush()
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show an archived session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, path, err := archiveManager().Lookup(args[0])
		if err != nil {
			return err
		}
		doc, err := export.ReadFile(path)
		if err != nil {
			return err
		}
		store := internal.NewStore()
		if err := export.NewImporter(store, nil).ImportDocument(doc); err != nil {
			return err
		}
		messages := store.Messages()
		out := cmd.OutOrStdout()
		displaySessionHeader(out, doc.Title, doc.SessionID, time.Time{}, len(messages))
		displayTranscript(out, messages, limit)
		if n := len(store.Files()); n > 0 {
			_, _ = fmt.Fprintf(out, "%d file(s) attached\n", n)
		}
		return nil
	},
}

var archiveRemoveCmd = &cobra.Command{
	Use:   "remove <session-id>",
	Short: "Remove an archived session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := archiveManager().Remove(args[0]); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from the archive\n", args[0])
		return nil
	},
}

var archiveClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every archived session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := archiveManager().Clear(); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Archive cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveListCmd, archiveShowCmd, archiveRemoveCmd, archiveClearCmd)
	archiveCmd.PersistentFlags().StringVar(&archiveDir, "dir", "", "Archive directory (defaults to CHATLINE_EXPORT_DIR)")
	archiveShowCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
}
