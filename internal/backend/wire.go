package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iksnae/chatline/internal"
)

// StringID decodes an id the backend may send either as a JSON number or as
// a string.
type StringID string

func (id *StringID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", data)
	}
	*id = StringID(n.String())
	return nil
}

// Timestamp decodes the backend's ISO-8601 timestamps. Zone-less values are
// taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTimestamp parses a backend timestamp. The empty string is the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

type wireMessage struct {
	ID        StringID  `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

type wireSession struct {
	SessionID string        `json:"session_id"`
	Title     string        `json:"title"`
	CreatedAt Timestamp     `json:"created_at"`
	UpdatedAt Timestamp     `json:"updated_at"`
	Messages  []wireMessage `json:"messages"`
}

func (ws wireSession) summary() internal.SessionSummary {
	return internal.SessionSummary{
		SessionID: ws.SessionID,
		Title:     ws.Title,
		CreatedAt: ws.CreatedAt.Time,
		UpdatedAt: ws.UpdatedAt.Time,
	}
}

func toMessages(in []wireMessage) ([]internal.Message, error) {
	out := make([]internal.Message, 0, len(in))
	for i, wm := range in {
		role := internal.Role(wm.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("message %d has unknown role %q", i, wm.Role)
		}
		out = append(out, internal.Message{
			ID:        string(wm.ID),
			Role:      role,
			Content:   wm.Content,
			Timestamp: wm.Timestamp.Time,
		})
	}
	return out, nil
}

type wireSharedSession struct {
	SessionID   string        `json:"session_id"`
	Title       string        `json:"title"`
	Messages    []wireMessage `json:"messages"`
	IsEditable  bool          `json:"is_editable"`
	LastSynced  Timestamp     `json:"last_synced"`
	AccessCount int           `json:"access_count"`
	PDFURL      string        `json:"pdf_url"`
	ExpiresAt   *Timestamp    `json:"expires_at"`
}

type wireShareInfo struct {
	Title        string     `json:"title"`
	IsActive     bool       `json:"is_active"`
	AllowEditing bool       `json:"allow_editing"`
	AccessCount  int        `json:"access_count"`
	CreatedAt    Timestamp  `json:"created_at"`
	LastSynced   Timestamp  `json:"last_synced"`
	ExpiresAt    *Timestamp `json:"expires_at"`
	PDFURL       string     `json:"pdf_url"`
}

type wireFile struct {
	ID            int            `json:"id"`
	OriginalName  string         `json:"original_name"`
	FileType      string         `json:"file_type"`
	FileSize      int64          `json:"file_size"`
	ParsedContent string         `json:"parsed_content"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     Timestamp      `json:"created_at"`
}

func (wf wireFile) parsedFile() internal.ParsedFile {
	return internal.ParsedFile{
		ID:            wf.ID,
		OriginalName:  wf.OriginalName,
		FileType:      wf.FileType,
		FileSize:      wf.FileSize,
		ParsedContent: wf.ParsedContent,
		Metadata:      wf.Metadata,
		CreatedAt:     wf.CreatedAt.Time,
	}
}

func timePtr(t *Timestamp) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
