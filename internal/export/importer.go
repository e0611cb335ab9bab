package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/iksnae/chatline/internal"
)

// DocumentFetcher downloads a document from a URL
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Importer loads export documents into a store. A document is applied as a
// whole or not at all; failures are kept in the importer's own error slot
// and never touch the store's chat error.
type Importer struct {
	store   *internal.Store
	fetcher DocumentFetcher

	mu  sync.Mutex
	err string
}

// NewImporter creates an importer. fetcher may be nil when only local files
// are imported.
func NewImporter(store *internal.Store, fetcher DocumentFetcher) *Importer {
	return &Importer{store: store, fetcher: fetcher}
}

// Err returns the last import error, empty after a successful import
func (im *Importer) Err() string {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.err
}

func (im *Importer) setErr(err error) error {
	im.mu.Lock()
	if err != nil {
		im.err = err.Error()
	} else {
		im.err = ""
	}
	im.mu.Unlock()
	return err
}

// ImportFile imports a .json or .json.gz document from disk
func (im *Importer) ImportFile(path string) (*Document, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, im.setErr(err)
	}
	return im.apply(doc)
}

// ImportURL downloads and imports a document
func (im *Importer) ImportURL(ctx context.Context, rawURL string) (*Document, error) {
	if im.fetcher == nil {
		return nil, im.setErr(errors.New("importing from a URL needs a backend client"))
	}
	body, err := im.fetcher.FetchDocument(ctx, rawURL)
	if err != nil {
		return nil, im.setErr(err)
	}
	defer func() { _ = body.Close() }()

	doc, err := decode(body, rawURL)
	if err != nil {
		return nil, im.setErr(err)
	}
	return im.apply(doc)
}

// Import imports from a path or, when source looks like an http(s) URL,
// from the network.
func (im *Importer) Import(ctx context.Context, source string) (*Document, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return im.ImportURL(ctx, source)
	}
	return im.ImportFile(source)
}

// ImportDocument applies an already decoded document
func (im *Importer) ImportDocument(doc *Document) error {
	_, err := im.apply(doc)
	return err
}

func (im *Importer) apply(doc *Document) (*Document, error) {
	if err := doc.Validate(); err != nil {
		return nil, im.setErr(err)
	}
	// Convert everything before touching the store.
	messages, err := doc.ToMessages()
	if err != nil {
		return nil, im.setErr(err)
	}
	files := doc.ToFiles()

	im.store.SetCurrentSession(internal.ConfirmedSession(doc.SessionID))
	im.store.SetMessages(messages)
	im.store.SetFiles(files)

	sessions := im.store.Sessions()
	known := false
	for _, s := range sessions {
		if s.SessionID == doc.SessionID {
			known = true
			break
		}
	}
	if !known {
		created, err := ParseTimestamp(doc.Metadata.ExportedAt)
		if err != nil || created.IsZero() {
			created = time.Now()
		}
		title := doc.Title
		if title == "" {
			title = fmt.Sprintf("Imported chat %s", doc.SessionID)
		}
		im.store.SetSessions(append(sessions, internal.SessionSummary{
			SessionID: doc.SessionID,
			Title:     title,
			CreatedAt: created,
			UpdatedAt: created,
		}))
	}

	internal.LogInfo("Imported session %s with %d message(s) and %d file(s)", doc.SessionID, len(messages), len(files))
	_ = im.setErr(nil)
	return doc, nil
}
