package export

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownExporter renders a printable transcript in Markdown format
type MarkdownExporter struct{}

// Export exports a document to Markdown format
func (e *MarkdownExporter) Export(doc *Document, w io.Writer) error {
	title := doc.Title
	if title == "" {
		title = "Chat Session " + doc.SessionID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)

	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", doc.SessionID)
	if doc.Metadata.ExportedAt != "" {
		_, _ = fmt.Fprintf(w, "**Exported:** %s  \n", doc.Metadata.ExportedAt)
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(doc.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range doc.Messages {
		timestamp := ""
		if msg.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp)
		}

		content := escapeMarkdown(msg.Content)

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", roleLabel(string(msg.Role)), timestamp, content)

		if i < len(doc.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	if len(doc.Files) > 0 {
		_, _ = fmt.Fprintf(w, "## Files\n\n")
		for _, f := range doc.Files {
			_, _ = fmt.Fprintf(w, "### %s (%s)\n\n", f.Name, strings.ToUpper(f.Type))
			_, _ = fmt.Fprintf(w, "```\n%s\n```\n\n", f.Content)
		}
		_, _ = fmt.Fprintf(w, "_File content is limited to the first %d characters._\n", FileContentLimit)
	}

	return nil
}

func roleLabel(role string) string {
	switch role {
	case "user":
		return "You"
	case "assistant":
		return "Assistant"
	case "":
		return "Unknown"
	default:
		return strings.ToUpper(role[:1]) + role[1:]
	}
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
