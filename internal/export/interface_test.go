package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/chatline/internal"
)

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
	}{
		{format: "json", wantExt: "json"},
		{format: "jsonl", wantExt: "jsonl"},
		{format: "md", wantExt: "md"},
		{format: "markdown", wantExt: "md"},
		{format: "yaml", wantExt: "yaml"},
	}

	for _, tt := range tests {
		exporter, err := NewExporter(tt.format)
		if err != nil {
			t.Errorf("NewExporter(%q) error = %v", tt.format, err)
			continue
		}
		if got := exporter.Extension(); got != tt.wantExt {
			t.Errorf("NewExporter(%q).Extension() = %q, want %q", tt.format, got, tt.wantExt)
		}
	}

	for _, format := range []string{"", "xml", "JSON", "pdf"} {
		if exporter, err := NewExporter(format); err == nil {
			t.Errorf("NewExporter(%q) = %T, want an error", format, exporter)
		}
	}
}

// Every format carries each message's content through to its output.
func TestExporters_RenderEveryMessage(t *testing.T) {
	messages := internal.CreateTestMessages(4)
	doc, err := NewDocument("render-1", "Render check", messages, nil)
	if err != nil {
		t.Fatalf("NewDocument() error = %v", err)
	}

	for _, format := range []string{"json", "jsonl", "md", "yaml"} {
		t.Run(format, func(t *testing.T) {
			exporter, err := NewExporter(format)
			if err != nil {
				t.Fatalf("NewExporter() error = %v", err)
			}
			var buf bytes.Buffer
			if err := exporter.Export(doc, &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			out := buf.String()
			for _, m := range messages {
				if !strings.Contains(out, m.Content) {
					t.Errorf("%s output is missing %q", format, m.Content)
				}
			}
		})
	}
}
