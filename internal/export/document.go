package export

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iksnae/chatline/internal"
)

const (
	// FormatVersion is written into every exported document
	FormatVersion = "1.0"

	// FileContentLimit is how many characters of a file's parsed content are
	// kept in an export. Longer content is truncated and cannot be recovered
	// by importing the document again.
	FileContentLimit = 2000

	// TimestampLayout is ISO-8601 in UTC with millisecond precision
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

var gzipMagic = []byte{0x1f, 0x8b}

// CompressedMessage is a message as it appears in an export document
type CompressedMessage struct {
	ID         string        `json:"id" yaml:"id"`
	Role       internal.Role `json:"role" yaml:"role"`
	Content    string        `json:"content" yaml:"content"`
	Timestamp  string        `json:"timestamp" yaml:"timestamp"`
	Compressed bool          `json:"compressed" yaml:"compressed"`
}

// ExportFile is an uploaded file carried along with an export
type ExportFile struct {
	ID      int    `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Content string `json:"content" yaml:"content"`
}

// Metadata describes when and how a document was produced
type Metadata struct {
	ExportedAt       string `json:"exportedAt" yaml:"exportedAt"`
	Version          string `json:"version" yaml:"version"`
	CompressionRatio int    `json:"compressionRatio" yaml:"compressionRatio"`
}

// Document is the portable form of a chat session
type Document struct {
	SessionID string              `json:"sessionId" yaml:"sessionId"`
	Title     string              `json:"title" yaml:"title"`
	Messages  []CompressedMessage `json:"messages" yaml:"messages"`
	Files     []ExportFile        `json:"files" yaml:"files"`
	Metadata  Metadata            `json:"metadata" yaml:"metadata"`
}

// plainMessage is the uncompressed wire form a message is measured against
type plainMessage struct {
	ID        string        `json:"id"`
	Role      internal.Role `json:"role"`
	Content   string        `json:"content"`
	Timestamp string        `json:"timestamp"`
}

// NewDocument builds an export document. Messages keep their order; file
// content is truncated to FileContentLimit characters.
func NewDocument(sessionID, title string, messages []internal.Message, files []internal.ParsedFile) (*Document, error) {
	return newDocument(sessionID, title, messages, files, time.Now())
}

func newDocument(sessionID, title string, messages []internal.Message, files []internal.ParsedFile, now time.Time) (*Document, error) {
	plain := make([]plainMessage, 0, len(messages))
	compressed := make([]CompressedMessage, 0, len(messages))
	for _, m := range messages {
		ts := FormatTimestamp(m.Timestamp)
		plain = append(plain, plainMessage{ID: m.ID, Role: m.Role, Content: m.Content, Timestamp: ts})
		compressed = append(compressed, CompressedMessage{
			ID:         m.ID,
			Role:       m.Role,
			Content:    m.Content,
			Timestamp:  ts,
			Compressed: true,
		})
	}

	stats, err := Stats(plain, compressed)
	if err != nil {
		return nil, err
	}

	exportFiles := make([]ExportFile, 0, len(files))
	for _, f := range files {
		exportFiles = append(exportFiles, ExportFile{
			ID:      f.ID,
			Name:    f.OriginalName,
			Type:    f.FileType,
			Content: Truncate(f.ParsedContent, FileContentLimit),
		})
	}

	return &Document{
		SessionID: sessionID,
		Title:     title,
		Messages:  compressed,
		Files:     exportFiles,
		Metadata: Metadata{
			ExportedAt:       FormatTimestamp(now),
			Version:          FormatVersion,
			CompressionRatio: stats.CompressionRatio,
		},
	}, nil
}

// Validate checks that the document names a session and carries a message
// list. An empty list is valid.
func (d *Document) Validate() error {
	if d.SessionID == "" {
		return &internal.FormatError{Source: "document", Detail: "missing sessionId"}
	}
	if d.Messages == nil {
		return &internal.FormatError{Source: "document", Detail: "missing messages"}
	}
	return nil
}

// ToMessages converts the document back into store messages. Timestamps are
// restored to millisecond precision.
func (d *Document) ToMessages() ([]internal.Message, error) {
	messages := make([]internal.Message, 0, len(d.Messages))
	for i, cm := range d.Messages {
		if !cm.Role.Valid() {
			return nil, &internal.FormatError{
				Source: "document",
				Detail: fmt.Sprintf("message %d has unknown role %q", i, cm.Role),
			}
		}
		ts, err := ParseTimestamp(cm.Timestamp)
		if err != nil {
			return nil, &internal.FormatError{
				Source: "document",
				Detail: fmt.Sprintf("message %d has a bad timestamp", i),
				Err:    err,
			}
		}
		messages = append(messages, internal.Message{
			ID:        cm.ID,
			Role:      cm.Role,
			Content:   cm.Content,
			Timestamp: ts,
		})
	}
	return messages, nil
}

// ToFiles converts the carried files back into parsed files. Content that
// was truncated on export stays truncated.
func (d *Document) ToFiles() []internal.ParsedFile {
	files := make([]internal.ParsedFile, 0, len(d.Files))
	for _, f := range d.Files {
		files = append(files, internal.ParsedFile{
			ID:            f.ID,
			OriginalName:  f.Name,
			FileType:      f.Type,
			FileSize:      int64(len(f.Content)),
			ParsedContent: f.Content,
		})
	}
	return files
}

// Encode writes the document as indented JSON
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// EncodeGzip writes the document as gzip-compressed indented JSON
func (d *Document) EncodeGzip(w io.Writer) error {
	zw := gzip.NewWriter(w)
	if err := d.Encode(zw); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// FileName returns the download name of the document:
// chat_<first 8 of session id>_<unix millis>.json, with .gz when gzipped.
func (d *Document) FileName(gzipped bool) string {
	return fileName(d.SessionID, gzipped, time.Now())
}

func fileName(sessionID string, gzipped bool, now time.Time) string {
	prefix := internal.SanitizeFileName(Truncate(sessionID, 8))
	name := fmt.Sprintf("chat_%s_%d.json", prefix, now.UnixMilli())
	if gzipped {
		name += ".gz"
	}
	return name
}

// Decode reads a document, transparently decompressing gzip input, and
// validates it. Every failure is a *internal.FormatError.
func Decode(r io.Reader) (*Document, error) {
	return decode(r, "document")
}

func decode(r io.Reader, source string) (*Document, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(gzipMagic)); err == nil && bytes.Equal(head, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, &internal.FormatError{Source: source, Detail: "bad gzip stream", Err: err}
		}
		defer func() { _ = zr.Close() }()
		r = zr
	} else {
		r = br
	}

	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, &internal.FormatError{Source: source, Detail: "failed to parse chat file", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after the document")
		}
		return nil, &internal.FormatError{Source: source, Detail: "failed to parse chat file", Err: err}
	}
	if err := doc.Validate(); err != nil {
		var fe *internal.FormatError
		if errors.As(err, &fe) {
			fe.Source = source
		}
		return nil, err
	}
	return &doc, nil
}

// ReadFile decodes a .json or .json.gz document from disk
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &internal.StorageError{Path: path, Op: "open", Err: err}
	}
	defer func() { _ = f.Close() }()
	return decode(f, path)
}

// FormatTimestamp renders t as export text
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses export text. Any RFC 3339 value is accepted.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Truncate keeps the first limit characters of s
func Truncate(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
