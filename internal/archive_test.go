package internal

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/chatline/testutil"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestNewArchiveManager(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	am := NewArchiveManager(dir)
	if am.Dir() != dir {
		t.Errorf("NewArchiveManager() dir = %q, want %q", am.Dir(), dir)
	}
}

func TestArchiveManager_Paths(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	am := NewArchiveManager(dir)

	if got, want := am.IndexPath(), filepath.Join(dir, "sessions.yaml"); got != want {
		t.Errorf("IndexPath() = %q, want %q", got, want)
	}

	tests := []struct {
		id      string
		gzipped bool
		want    string
	}{
		{"abc-123", false, "session_abc-123.json"},
		{"abc-123", true, "session_abc-123.json.gz"},
		{"a/b:c", false, "session_a_b_c.json"},
	}
	for _, tt := range tests {
		if got := am.DocumentPath(tt.id, tt.gzipped); got != filepath.Join(dir, tt.want) {
			t.Errorf("DocumentPath(%q, %v) = %q, want %q", tt.id, tt.gzipped, got, tt.want)
		}
	}
}

func TestArchiveManager_LoadIndexMissing(t *testing.T) {
	am := NewArchiveManager(filepath.Join(testutil.CreateTempDir(t), "none"))
	index, err := am.LoadIndex()
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}
	if len(index.Entries) != 0 {
		t.Errorf("LoadIndex() entries = %d, want 0", len(index.Entries))
	}
	if index.Metadata.Version != ArchiveVersion {
		t.Errorf("LoadIndex() version = %q, want %q", index.Metadata.Version, ArchiveVersion)
	}
}

func TestArchiveManager_SaveAndList(t *testing.T) {
	dir := filepath.Join(testutil.CreateTempDir(t), "exports")
	am := NewArchiveManager(dir)

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := am.Save(ArchiveEntry{SessionID: "s1", Title: "First", MessageCount: 2, ExportedAt: older}, writeString(`{"a":1}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	entry, err := am.Save(ArchiveEntry{SessionID: "s2", Title: "Second", ExportedAt: older.Add(time.Hour)}, writeString(`{}`))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if entry.File != "session_s2.json" || entry.Size != 2 {
		t.Errorf("Save() entry = %+v", entry)
	}

	entries, err := am.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 || entries[0].SessionID != "s2" || entries[1].SessionID != "s1" {
		t.Fatalf("List() = %+v, want s2 then s1", entries)
	}

	data, err := os.ReadFile(filepath.Join(dir, "session_s1.json"))
	if err != nil || string(data) != `{"a":1}` {
		t.Errorf("document content = %q, %v", data, err)
	}
	if _, err := os.Stat(am.IndexPath()); err != nil {
		t.Errorf("index not written: %v", err)
	}
}

func TestArchiveManager_SaveReplacesSession(t *testing.T) {
	am := NewArchiveManager(testutil.CreateTempDir(t))

	if _, err := am.Save(ArchiveEntry{SessionID: "s1"}, writeString("plain")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := am.Save(ArchiveEntry{SessionID: "s1", Gzipped: true}, writeString("zipped")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, _ := am.List()
	if len(entries) != 1 || !entries[0].Gzipped {
		t.Fatalf("List() = %+v, want one gzipped entry", entries)
	}
	if _, err := os.Stat(am.DocumentPath("s1", false)); !os.IsNotExist(err) {
		t.Error("the replaced plain document should be removed")
	}

	entry, path, err := am.Lookup("s1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !strings.HasSuffix(path, ".json.gz") || entry.SessionID != "s1" {
		t.Errorf("Lookup() = %+v, %q", entry, path)
	}
}

func TestArchiveManager_SaveWriteFailure(t *testing.T) {
	am := NewArchiveManager(testutil.CreateTempDir(t))
	_, err := am.Save(ArchiveEntry{SessionID: "s1"}, func(io.Writer) error { return errors.New("disk full") })

	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("Save() error = %v, want *StorageError", err)
	}
	if _, err := os.Stat(am.DocumentPath("s1", false)); !os.IsNotExist(err) {
		t.Error("no document should be left behind")
	}
	entries, _ := am.List()
	if len(entries) != 0 {
		t.Errorf("List() = %+v, want empty", entries)
	}
}

func TestArchiveManager_RemoveAndClear(t *testing.T) {
	am := NewArchiveManager(testutil.CreateTempDir(t))
	for _, id := range []string{"s1", "s2"} {
		if _, err := am.Save(ArchiveEntry{SessionID: id}, writeString("{}")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	if err := am.Remove("s1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := am.Remove("s1"); err == nil {
		t.Error("Remove() of an unknown session should fail")
	}
	if _, _, err := am.Lookup("s1"); err == nil {
		t.Error("Lookup() of a removed session should fail")
	}

	if err := am.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := os.Stat(am.DocumentPath("s2", false)); !os.IsNotExist(err) {
		t.Error("Clear() should remove documents")
	}
	if _, err := os.Stat(am.IndexPath()); !os.IsNotExist(err) {
		t.Error("Clear() should remove the index")
	}
}

func TestArchiveManager_CorruptIndex(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.WriteFile(t, filepath.Join(dir, "sessions.yaml"), []byte("sessions: [unclosed"))

	_, err := NewArchiveManager(dir).LoadIndex()
	var se *StorageError
	if !errors.As(err, &se) {
		t.Errorf("LoadIndex() error = %v, want *StorageError", err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc-123", "abc-123"},
		{"x/../../escaped", "x_.._.._escaped"},
		{`..\up`, ".._up"},
		{"a:b*c?d", "a_b_c_d"},
		{`"<q>|`, "__q__"},
	}
	for _, tt := range tests {
		got := SanitizeFileName(tt.in)
		if got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if strings.ContainsAny(got, `/\`) {
			t.Errorf("SanitizeFileName(%q) = %q still contains a separator", tt.in, got)
		}
	}
}
