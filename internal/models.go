package internal

import (
	"time"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single entry of a session transcript
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// SessionSummary is the list view of a persisted conversation
type SessionSummary struct {
	SessionID string    `json:"session_id" yaml:"session_id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Session is a summary together with its transcript
type Session struct {
	SessionSummary `yaml:",inline"`
	Messages       []Message `json:"messages" yaml:"messages"`
}

// ParsedFile is an uploaded file after server-side text extraction
type ParsedFile struct {
	ID            int            `json:"id" yaml:"id"`
	OriginalName  string         `json:"original_name" yaml:"original_name"`
	FileType      string         `json:"file_type" yaml:"file_type"`
	FileSize      int64          `json:"file_size" yaml:"file_size"`
	ParsedContent string         `json:"parsed_content" yaml:"parsed_content"`
	Metadata      map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at" yaml:"created_at"`
}

// SharedSession is the server-held mirror of a session served to viewers
type SharedSession struct {
	SessionID   string
	Title       string
	Messages    []Message
	LastSynced  time.Time
	AccessCount int
	ExpiresAt   *time.Time
	IsEditable  bool
	PDFURL      string
}

// ShareRequest describes a share to create for an existing session
type ShareRequest struct {
	SessionID    string `json:"session_id"`
	Title        string `json:"title"`
	AllowEditing bool   `json:"allow_editing"`
	ExpiresHours int    `json:"expires_hours"`
}

// ShareInfo is returned when a share has been created
type ShareInfo struct {
	ShareToken  string     `json:"share_token"`
	ShareURL    string     `json:"share_url"`
	PDFURL      string     `json:"pdf_url"`
	ExpiresAt   *time.Time `json:"expires_at"`
	AccessCount int        `json:"access_count"`
}

// ChatReply is the non-streaming reply of the chat endpoint
type ChatReply struct {
	Response  string
	SessionID string
	MessageID string
}

// SessionRef identifies the active session. A Local ref is minted by the
// client before the backend has confirmed a server id; a Confirmed ref
// carries the server id. The zero value means no session is active.
type SessionRef struct {
	ID        string
	Confirmed bool
}

// LocalSession returns an unconfirmed reference
func LocalSession(tempID string) SessionRef {
	return SessionRef{ID: tempID}
}

// ConfirmedSession returns a reference to a server-known session
func ConfirmedSession(serverID string) SessionRef {
	return SessionRef{ID: serverID, Confirmed: true}
}

// IsZero reports whether no session is referenced
func (r SessionRef) IsZero() bool {
	return r.ID == ""
}

// IsLocal reports whether r is a not-yet-confirmed local reference
func (r SessionRef) IsLocal() bool {
	return r.ID != "" && !r.Confirmed
}

func (r SessionRef) String() string {
	switch {
	case r.IsZero():
		return "none"
	case r.Confirmed:
		return r.ID
	default:
		return "local:" + r.ID
	}
}
