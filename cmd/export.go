package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/chatline/internal"
	"github.com/iksnae/chatline/internal/export"
	"github.com/spf13/cobra"
)

var (
	format     string
	outputDir  string
	gzipOutput bool
	withFiles  bool
	serverSide bool
	download   bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session to a file",
	Long: `Export a session as compact JSON (the portable chat file), JSONL, Markdown or YAML.

JSON exports are kept in the archive directory together with a sessions.yaml
index; use 'chatline archive list' to see them. --gzip compresses JSON exports.

--download saves the chat file as chat_<id>_<timestamp>.json[.gz] in the
current directory (or --out) instead, without touching the archive.

Uploaded file content is limited to the first 2000 characters in exports.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}
		if gzipOutput && exporter.Extension() != "json" {
			return fmt.Errorf("--gzip only applies to the json format")
		}
		if download && exporter.Extension() != "json" {
			return fmt.Errorf("--download only applies to the json format")
		}
		dir := outputDir
		switch {
		case dir != "":
		case download:
			dir = "."
		default:
			dir = cfg.ExportDir
		}

		ctx := cmd.Context()
		client := newClient()
		var doc *export.Document
		err = internal.ShowProgress(ctx, fmt.Sprintf("Loading session %s", args[0]), func() error {
			var loadErr error
			if serverSide {
				doc, loadErr = fetchServerExport(cmd, args[0])
				return loadErr
			}
			session, loadErr := client.GetSession(ctx, args[0])
			if loadErr != nil {
				return loadErr
			}
			var files []internal.ParsedFile
			if withFiles {
				if files, loadErr = client.ListFiles(ctx); loadErr != nil {
					return loadErr
				}
			}
			doc, loadErr = export.NewDocument(session.SessionID, session.Title, session.Messages, files)
			return loadErr
		})
		if err != nil {
			return fmt.Errorf("failed to export session %s: %w", args[0], err)
		}

		write := writeExport
		if download {
			write = writeDownload
		}
		path, size, err := write(dir, doc, exporter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Exported %d message(s) and %d file(s) to %s (%s)\n",
			len(doc.Messages), len(doc.Files), path, humanize.Bytes(uint64(size)))
		if doc.Metadata.CompressionRatio != 0 {
			_, _ = fmt.Fprintf(out, "Compression ratio: %d%%\n", doc.Metadata.CompressionRatio)
		}
		return nil
	},
}

func fetchServerExport(cmd *cobra.Command, sessionID string) (*export.Document, error) {
	body, err := newClient().ExportSession(cmd.Context(), sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()
	return export.Decode(body)
}

// writeExport stores doc in dir. JSON goes through the archive so the
// index stays current; other formats are plain files.
func writeExport(dir string, doc *export.Document, exporter export.Exporter) (string, int64, error) {
	if exporter.Extension() == "json" {
		archive := internal.NewArchiveManager(dir)
		entry, err := archive.Save(internal.ArchiveEntry{
			SessionID:    doc.SessionID,
			Title:        doc.Title,
			Gzipped:      gzipOutput,
			MessageCount: len(doc.Messages),
			FileCount:    len(doc.Files),
		}, func(w io.Writer) error {
			if gzipOutput {
				return doc.EncodeGzip(w)
			}
			return exporter.Export(doc, w)
		})
		if err != nil {
			return "", 0, err
		}
		return filepath.Join(dir, entry.File), entry.Size, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("session_%s.%s", internal.SanitizeFileName(doc.SessionID), exporter.Extension()))
	file, err := os.Create(path)
	if err != nil {
		return "", 0, &internal.StorageError{Path: path, Op: "write", Err: err}
	}
	if err := exporter.Export(doc, file); err != nil {
		_ = file.Close()
		return "", 0, &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return "", 0, &internal.StorageError{Path: path, Op: "write", Err: err}
	}
	info, err := os.Stat(path)
	if err != nil {
		return path, 0, nil
	}
	return path, info.Size(), nil
}

// writeDownload saves doc in dir under its download name, outside the archive
func writeDownload(dir string, doc *export.Document, exporter export.Exporter) (string, int64, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, &internal.StorageError{Path: dir, Op: "mkdir", Err: err}
	}
	path := filepath.Join(dir, doc.FileName(gzipOutput))
	file, err := os.Create(path)
	if err != nil {
		return "", 0, &internal.StorageError{Path: path, Op: "write", Err: err}
	}
	cw := &countingWriter{w: file}
	if gzipOutput {
		err = doc.EncodeGzip(cw)
	} else {
		err = exporter.Export(doc, cw)
	}
	if cerr := file.Close(); err == nil && cerr != nil {
		return "", 0, &internal.StorageError{Path: path, Op: "write", Err: cerr}
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return path, cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "json", "Export format (json, jsonl, md, yaml)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "", "Output directory (defaults to CHATLINE_EXPORT_DIR)")
	exportCmd.Flags().BoolVar(&gzipOutput, "gzip", false, "Gzip the JSON export")
	exportCmd.Flags().BoolVar(&withFiles, "with-files", false, "Include uploaded files in the export")
	exportCmd.Flags().BoolVar(&serverSide, "server", false, "Let the backend build the export document")
	exportCmd.Flags().BoolVar(&download, "download", false, "Save as chat_<id>_<timestamp>.json outside the archive")
}
