package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/chatline/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *stubFetcher) FetchDocument(_ context.Context, rawURL string) (io.ReadCloser, error) {
	f.urls = append(f.urls, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.body)), nil
}

const scenarioDocument = `{"sessionId":"s1","title":"T","messages":[{"id":"1","role":"user","content":"hi","timestamp":"2024-01-01T00:00:00.000Z"}],"files":[]}`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestImporter_ImportFile(t *testing.T) {
	store := internal.NewStore()
	im := NewImporter(store, nil)

	doc, err := im.ImportFile(writeFile(t, "chat.json", []byte(scenarioDocument)))
	require.NoError(t, err)
	assert.Equal(t, "s1", doc.SessionID)

	assert.Equal(t, internal.ConfirmedSession("s1"), store.CurrentSession())
	messages := store.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, internal.RoleUser, messages[0].Role)
	assert.Equal(t, "hi", messages[0].Content)

	sessions := store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].SessionID)
	assert.Equal(t, "T", sessions[0].Title)
	assert.Empty(t, im.Err())
}

func TestImporter_SummaryDatedByExport(t *testing.T) {
	store := internal.NewStore()
	im := NewImporter(store, nil)
	raw := `{"sessionId":"s1","title":"T","messages":[],"files":[],"metadata":{"exportedAt":"2024-03-05T10:20:30.400Z","version":"1.0","compressionRatio":0}}`

	require.NoError(t, im.ImportDocument(mustDecode(t, raw)))
	sessions := store.Sessions()
	require.Len(t, sessions, 1)
	want := time.Date(2024, 3, 5, 10, 20, 30, 400*int(time.Millisecond), time.UTC)
	assert.True(t, sessions[0].CreatedAt.Equal(want), "created at %s", sessions[0].CreatedAt)
	assert.True(t, sessions[0].UpdatedAt.Equal(want))

	// Without an export time the summary is dated now.
	before := time.Now()
	store = internal.NewStore()
	im = NewImporter(store, nil)
	require.NoError(t, im.ImportDocument(mustDecode(t, scenarioDocument)))
	sessions = store.Sessions()
	require.Len(t, sessions, 1)
	assert.False(t, sessions[0].CreatedAt.Before(before))
}

func mustDecode(t *testing.T, raw string) *Document {
	t.Helper()
	doc, err := Decode(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

func TestImporter_KnownSessionNotDuplicated(t *testing.T) {
	store := internal.NewStore()
	store.SetSessions([]internal.SessionSummary{{SessionID: "s1", Title: "Existing"}})
	im := NewImporter(store, nil)

	_, err := im.ImportFile(writeFile(t, "chat.json", []byte(scenarioDocument)))
	require.NoError(t, err)

	sessions := store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "Existing", sessions[0].Title)
}

func TestImporter_GzipFile(t *testing.T) {
	doc, err := NewDocument("gz-session", "Zipped", internal.CreateTestMessages(4),
		[]internal.ParsedFile{internal.CreateTestFile(3, "a.txt", 2500)})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, doc.EncodeGzip(&buf))

	store := internal.NewStore()
	im := NewImporter(store, nil)
	_, err = im.ImportFile(writeFile(t, "chat.json.gz", buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, "gz-session", store.CurrentSession().ID)
	assert.Len(t, store.Messages(), 4)
	files := store.Files()
	require.Len(t, files, 1)
	assert.Len(t, files[0].ParsedContent, FileContentLimit)
}

func TestImporter_FailureLeavesStoreUntouched(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", "not json"},
		{"missing session id", `{"messages":[]}`},
		{"missing messages", `{"sessionId":"s2"}`},
		{"bad role halfway", `{"sessionId":"s2","messages":[` +
			`{"id":"1","role":"user","content":"ok","timestamp":"2024-01-01T00:00:00.000Z"},` +
			`{"id":"2","role":"robot","content":"bad","timestamp":"2024-01-01T00:00:00.000Z"}]}`},
		{"bad timestamp", `{"sessionId":"s2","messages":[{"id":"1","role":"user","content":"x","timestamp":"yesterday"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := internal.NewStore()
			store.SetCurrentSession(internal.ConfirmedSession("keep"))
			store.AddMessage(internal.RoleUser, "existing")
			before := store.Snapshot()

			im := NewImporter(store, nil)
			_, err := im.ImportFile(writeFile(t, "bad.json", []byte(tt.raw)))
			require.Error(t, err)

			var fe *internal.FormatError
			assert.True(t, errors.As(err, &fe), "want *internal.FormatError, got %T", err)
			assert.NotEmpty(t, im.Err())
			assert.Empty(t, store.ErrorMessage(), "import errors stay out of the chat error slot")
			assert.Equal(t, before, store.Snapshot())
		})
	}
}

func TestImporter_ErrorClearedBySuccess(t *testing.T) {
	im := NewImporter(internal.NewStore(), nil)
	_, err := im.ImportFile(writeFile(t, "bad.json", []byte("{")))
	require.Error(t, err)
	require.NotEmpty(t, im.Err())

	_, err = im.ImportFile(writeFile(t, "good.json", []byte(scenarioDocument)))
	require.NoError(t, err)
	assert.Empty(t, im.Err())
}

func TestImporter_ImportURL(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(scenarioDocument)}
	store := internal.NewStore()
	im := NewImporter(store, fetcher)

	_, err := im.Import(context.Background(), "https://files.example.com/chat_s1.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://files.example.com/chat_s1.json"}, fetcher.urls)
	assert.Equal(t, "s1", store.CurrentSession().ID)
}

func TestImporter_ImportURLFailure(t *testing.T) {
	fetcher := &stubFetcher{err: &internal.TransportError{Op: "fetch document", Status: 404, Message: "gone"}}
	store := internal.NewStore()
	im := NewImporter(store, fetcher)

	_, err := im.ImportURL(context.Background(), "https://files.example.com/x.json")
	require.Error(t, err)
	assert.Contains(t, im.Err(), "gone")
	assert.True(t, store.CurrentSession().IsZero())
}

func TestImporter_URLWithoutFetcher(t *testing.T) {
	im := NewImporter(internal.NewStore(), nil)
	_, err := im.Import(context.Background(), "http://example.com/a.json")
	require.Error(t, err)
	assert.Contains(t, im.Err(), "backend")
}
