package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/iksnae/chatline/internal"
	"github.com/spf13/cobra"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"list", "ls"},
	Short:   "List sessions on the backend",
	Long:    `List every chat session the backend knows about, most recently updated first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var sessions []internal.SessionSummary
		err := internal.ShowProgress(cmd.Context(), "Loading sessions", func() error {
			var err error
			sessions, err = newClient().ListSessions(cmd.Context())
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		displaySessions(cmd.OutOrStdout(), sessions, time.Now())
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session on the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteSession(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", args[0], err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
		return nil
	},
}

func displaySessions(w io.Writer, sessions []internal.SessionSummary, now time.Time) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(w, headerStyle.Render("📋 No sessions found"))
		return
	}

	_, _ = fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(sessions))))
	_, _ = fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Updated")+"\t")
	_, _ = fmt.Fprintln(tw, strings.Repeat("─", 80))

	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		if r := []rune(title); len(r) > 50 {
			title = string(r[:47]) + "..."
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t\n", idStyle.Render(s.SessionID), title, dateStyle.Render(relativeTime(s.UpdatedAt, now)))
	}
	_ = tw.Flush()

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, idStyle.Render("💡 Tip: Use the ID with `chatline show <id>` or `chatline chat --session <id>`"))
}

func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(deleteCmd)
}
