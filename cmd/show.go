package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/chatline/internal"
	"github.com/spf13/cobra"
)

var (
	limit int
	since string
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show messages for a specific session",
	Long:  `Display the transcript of a session stored on the backend.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sinceTime time.Time
		if since != "" {
			parsed, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
			sinceTime = parsed
		}

		session, err := newClient().GetSession(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load session %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		displaySessionHeader(out, session.Title, session.SessionID, session.CreatedAt, len(session.Messages))
		displayTranscript(out, filterMessages(session.Messages, sinceTime), limit)
		return nil
	},
}

// filterMessages keeps the messages at or after since. A zero since keeps all.
func filterMessages(messages []internal.Message, since time.Time) []internal.Message {
	if since.IsZero() {
		return messages
	}
	filtered := make([]internal.Message, 0, len(messages))
	for _, msg := range messages {
		if !msg.Timestamp.Before(since) {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

func displaySessionHeader(w io.Writer, title, id string, created time.Time, count int) {
	if title == "" {
		title = "Untitled"
	}
	_, _ = fmt.Fprintln(w, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", title)))

	metaParts := []string{fmt.Sprintf("ID: %s", id)}
	if !created.IsZero() {
		metaParts = append(metaParts, fmt.Sprintf("Created: %s", created.Local().Format("2006-01-02 15:04")))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", count))
	_, _ = fmt.Fprintln(w, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	_, _ = fmt.Fprintln(w)
}

// displayTranscript prints messages, at most max of them when max > 0
func displayTranscript(w io.Writer, messages []internal.Message, max int) {
	total := len(messages)
	shown := messages
	if max > 0 && max < total {
		shown = messages[:max]
	}
	for i, msg := range shown {
		displayMessage(w, i+1, msg, total)
	}
	if len(shown) < total {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true).
			Render(fmt.Sprintf("... (%d more message(s))", total-len(shown))))
	}
}

func displayMessage(w io.Writer, index int, msg internal.Message, total int) {
	var actorStyle lipgloss.Style
	var actorLabel string

	switch msg.Role {
	case internal.RoleUser:
		actorStyle = userMessageStyle
		actorLabel = "👤 User"
	case internal.RoleAssistant:
		actorStyle = assistantMessageStyle
		actorLabel = "🤖 Assistant"
	default:
		actorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		actorLabel = fmt.Sprintf("🔧 %s", msg.Role)
	}

	header := actorStyle.Render(actorLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if !msg.Timestamp.IsZero() {
		header += " " + timestampStyle.Render(msg.Timestamp.Local().Format("15:04:05"))
	}
	_, _ = fmt.Fprintln(w, header)

	content := strings.TrimSpace(msg.Content)
	if content != "" {
		content = wrapText(content, internal.TerminalWidth(80)-4)
		_, _ = fmt.Fprintln(w, messageContentStyle.Render(content))
	} else {
		_, _ = fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}
	_, _ = fmt.Fprintln(w)
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages since timestamp (RFC3339)")
}
