package export

import (
	"io"
)

// JSONExporter writes the document itself. Its output can be imported again.
type JSONExporter struct{}

// Export exports a document to JSON format
func (e *JSONExporter) Export(doc *Document, w io.Writer) error {
	return doc.Encode(w)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
