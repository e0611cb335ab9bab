package export

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONLExporter exports a transcript in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a document's messages to JSONL format
func (e *JSONLExporter) Export(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for _, msg := range doc.Messages {
		obj := map[string]interface{}{
			"id":      msg.ID,
			"role":    msg.Role,
			"content": msg.Content,
		}

		if msg.Timestamp != "" {
			obj["timestamp"] = msg.Timestamp
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
