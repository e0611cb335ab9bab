package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ArchiveVersion is the layout version recorded in the archive index
const ArchiveVersion = "1.0"

// ArchiveManager keeps downloaded export documents in a directory, with a
// YAML index describing each one.
type ArchiveManager struct {
	dir string
}

// ArchiveMetadata stores metadata about the archive
type ArchiveMetadata struct {
	APIURL    string    `yaml:"api_url,omitempty"`
	Version   string    `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// ArchiveEntry describes one archived export document
type ArchiveEntry struct {
	SessionID    string    `yaml:"session_id"`
	Title        string    `yaml:"title,omitempty"`
	File         string    `yaml:"file"`
	Gzipped      bool      `yaml:"gzipped"`
	MessageCount int       `yaml:"message_count"`
	FileCount    int       `yaml:"file_count"`
	Size         int64     `yaml:"size"`
	ExportedAt   time.Time `yaml:"exported_at"`
}

// ArchiveIndex is the YAML index of all archived documents
type ArchiveIndex struct {
	Entries  []ArchiveEntry  `yaml:"sessions"`
	Metadata ArchiveMetadata `yaml:"metadata"`
}

// NewArchiveManager creates a new archive manager
func NewArchiveManager(dir string) *ArchiveManager {
	return &ArchiveManager{dir: dir}
}

// Dir returns the archive directory path
func (am *ArchiveManager) Dir() string {
	return am.dir
}

// EnsureDir ensures the archive directory exists
func (am *ArchiveManager) EnsureDir() error {
	if err := os.MkdirAll(am.dir, 0755); err != nil {
		return &StorageError{Path: am.dir, Op: "mkdir", Err: err}
	}
	return nil
}

// IndexPath returns the path to the archive index YAML file
func (am *ArchiveManager) IndexPath() string {
	return filepath.Join(am.dir, "sessions.yaml")
}

// DocumentPath returns where a session's document is stored
func (am *ArchiveManager) DocumentPath(sessionID string, gzipped bool) string {
	name := fmt.Sprintf("session_%s.json", SanitizeFileName(sessionID))
	if gzipped {
		name += ".gz"
	}
	return filepath.Join(am.dir, name)
}

// SanitizeFileName makes s safe to use as a single path element. Path
// separators and characters that are invalid on common filesystems become '_'.
func SanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

// LoadIndex loads the archive index. A missing index yields an empty one.
func (am *ArchiveManager) LoadIndex() (*ArchiveIndex, error) {
	indexPath := am.IndexPath()
	data, err := os.ReadFile(indexPath)
	if os.IsNotExist(err) {
		now := time.Now()
		return &ArchiveIndex{
			Entries:  make([]ArchiveEntry, 0),
			Metadata: ArchiveMetadata{Version: ArchiveVersion, CreatedAt: now, UpdatedAt: now},
		}, nil
	}
	if err != nil {
		return nil, &StorageError{Path: indexPath, Op: "read", Err: err}
	}

	var index ArchiveIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &StorageError{Path: indexPath, Op: "read", Err: fmt.Errorf("failed to unmarshal index: %w", err)}
	}
	return &index, nil
}

// SaveIndex saves the archive index
func (am *ArchiveManager) SaveIndex(index *ArchiveIndex) error {
	if err := am.EnsureDir(); err != nil {
		return err
	}

	indexPath := am.IndexPath()
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := os.WriteFile(indexPath, data, 0644); err != nil {
		return &StorageError{Path: indexPath, Op: "write", Err: err}
	}
	return nil
}

// Save writes a document through write and records it in the index,
// replacing an earlier archive of the same session.
func (am *ArchiveManager) Save(entry ArchiveEntry, write func(w io.Writer) error) (*ArchiveEntry, error) {
	if err := am.EnsureDir(); err != nil {
		return nil, err
	}
	index, err := am.LoadIndex()
	if err != nil {
		return nil, err
	}

	path := am.DocumentPath(entry.SessionID, entry.Gzipped)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, &StorageError{Path: tmp, Op: "write", Err: err}
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return nil, &StorageError{Path: tmp, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return nil, &StorageError{Path: tmp, Op: "write", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, &StorageError{Path: path, Op: "write", Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "stat", Err: err}
	}
	entry.File = filepath.Base(path)
	entry.Size = info.Size()
	if entry.ExportedAt.IsZero() {
		entry.ExportedAt = time.Now()
	}

	found := false
	for i, existing := range index.Entries {
		if existing.SessionID == entry.SessionID {
			if existing.File != entry.File {
				_ = os.Remove(filepath.Join(am.dir, existing.File))
			}
			index.Entries[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Entries = append(index.Entries, entry)
	}
	index.Metadata.UpdatedAt = time.Now()

	if err := am.SaveIndex(index); err != nil {
		return nil, err
	}
	LogDebug("archived session %s to %s", entry.SessionID, path)
	return &entry, nil
}

// List returns the archived documents, most recently exported first
func (am *ArchiveManager) List() ([]ArchiveEntry, error) {
	index, err := am.LoadIndex()
	if err != nil {
		return nil, err
	}
	entries := append([]ArchiveEntry(nil), index.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ExportedAt.After(entries[j].ExportedAt)
	})
	return entries, nil
}

// Lookup returns the entry of a session and the absolute path of its document
func (am *ArchiveManager) Lookup(sessionID string) (*ArchiveEntry, string, error) {
	index, err := am.LoadIndex()
	if err != nil {
		return nil, "", err
	}
	for _, entry := range index.Entries {
		if entry.SessionID == sessionID {
			e := entry
			return &e, filepath.Join(am.dir, entry.File), nil
		}
	}
	return nil, "", &StorageError{Path: am.IndexPath(), Op: "lookup", Err: fmt.Errorf("session %s is not archived", sessionID)}
}

// Remove deletes one archived document and its index entry
func (am *ArchiveManager) Remove(sessionID string) error {
	index, err := am.LoadIndex()
	if err != nil {
		return err
	}
	kept := index.Entries[:0]
	removed := false
	for _, entry := range index.Entries {
		if entry.SessionID == sessionID {
			path := filepath.Join(am.dir, entry.File)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return &StorageError{Path: path, Op: "remove", Err: err}
			}
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		return &StorageError{Path: am.IndexPath(), Op: "remove", Err: fmt.Errorf("session %s is not archived", sessionID)}
	}
	index.Entries = kept
	index.Metadata.UpdatedAt = time.Now()
	return am.SaveIndex(index)
}

// Clear deletes every archived document and the index
func (am *ArchiveManager) Clear() error {
	indexPath := am.IndexPath()

	index, err := am.LoadIndex()
	if err == nil {
		for _, entry := range index.Entries {
			_ = os.Remove(filepath.Join(am.dir, entry.File))
		}
	}

	if err := os.Remove(indexPath); err != nil && !os.IsNotExist(err) {
		return &StorageError{Path: indexPath, Op: "remove", Err: err}
	}
	return nil
}
