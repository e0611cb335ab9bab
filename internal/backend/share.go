package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iksnae/chatline/internal"
)

// ShareStatus describes an existing share without fetching its transcript
type ShareStatus struct {
	Title        string
	IsActive     bool
	AllowEditing bool
	AccessCount  int
	CreatedAt    time.Time
	LastSynced   time.Time
	ExpiresAt    *time.Time
	PDFURL       string
}

func sharePath(token, suffix string) string {
	return "/chat/shared/" + url.PathEscape(token) + "/" + suffix
}

// CreateShare publishes a session as a shared session
func (c *Client) CreateShare(ctx context.Context, req internal.ShareRequest) (*internal.ShareInfo, error) {
	var out struct {
		ShareToken string     `json:"share_token"`
		ShareURL   string     `json:"share_url"`
		PDFURL     string     `json:"pdf_url"`
		ExpiresAt  *Timestamp `json:"expires_at"`
	}
	if err := c.callJSON(ctx, "create share", http.MethodPost, "/chat/shared/create/", req, &out); err != nil {
		return nil, err
	}
	return &internal.ShareInfo{
		ShareToken: out.ShareToken,
		ShareURL:   out.ShareURL,
		PDFURL:     out.PDFURL,
		ExpiresAt:  timePtr(out.ExpiresAt),
	}, nil
}

// GetSharedSession fetches the current snapshot of a shared session. Each
// call counts as an access on the backend.
func (c *Client) GetSharedSession(ctx context.Context, token string) (*internal.SharedSession, error) {
	var out wireSharedSession
	if err := c.callJSON(ctx, "get shared", http.MethodGet, sharePath(token, ""), nil, &out); err != nil {
		return nil, err
	}
	messages, err := toMessages(out.Messages)
	if err != nil {
		return nil, &internal.TransportError{Op: "get shared", Status: http.StatusOK, Err: err}
	}
	return &internal.SharedSession{
		SessionID:   out.SessionID,
		Title:       out.Title,
		Messages:    messages,
		LastSynced:  out.LastSynced.Time,
		AccessCount: out.AccessCount,
		ExpiresAt:   timePtr(out.ExpiresAt),
		IsEditable:  out.IsEditable,
		PDFURL:      out.PDFURL,
	}, nil
}

// ShareInfo returns the status of a share
func (c *Client) ShareInfo(ctx context.Context, token string) (*ShareStatus, error) {
	var out wireShareInfo
	if err := c.callJSON(ctx, "share info", http.MethodGet, sharePath(token, "info/"), nil, &out); err != nil {
		return nil, err
	}
	return &ShareStatus{
		Title:        out.Title,
		IsActive:     out.IsActive,
		AllowEditing: out.AllowEditing,
		AccessCount:  out.AccessCount,
		CreatedAt:    out.CreatedAt.Time,
		LastSynced:   out.LastSynced.Time,
		ExpiresAt:    timePtr(out.ExpiresAt),
		PDFURL:       out.PDFURL,
	}, nil
}

// AddSharedMessage appends a message to an editable shared session
func (c *Client) AddSharedMessage(ctx context.Context, token string, role internal.Role, content string) error {
	body := map[string]string{"role": string(role), "content": content}
	return c.callJSON(ctx, "add shared message", http.MethodPost, sharePath(token, "add-message/"), body, nil)
}

// SharedPDF streams the backend-rendered PDF of a shared session. The caller
// closes the returned body.
func (c *Client) SharedPDF(ctx context.Context, token string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, sharePath(token, "pdf/"), nil)
	if err != nil {
		return nil, &internal.TransportError{Op: "shared pdf", Err: err}
	}
	req.Header.Set("Accept", "application/pdf")
	resp, err := c.do(c.stream, "shared pdf", req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ImportResult is the backend's answer to a server-side import
type ImportResult struct {
	SessionID        string `json:"sessionId"`
	Title            string `json:"title"`
	ImportedMessages int    `json:"importedMessages"`
	ImportedFiles    int    `json:"importedFiles"`
}

// ExportSession asks the backend to export a session. The raw document is
// returned so the caller can decode it with the export codec.
func (c *Client) ExportSession(ctx context.Context, sessionID string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/chat/export/", map[string]string{"session_id": sessionID})
	if err != nil {
		return nil, &internal.TransportError{Op: "export", Err: err}
	}
	resp, err := c.do(c.http, "export", req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ImportSession uploads an export document so the backend persists it
func (c *Client) ImportSession(ctx context.Context, document any) (*ImportResult, error) {
	var out ImportResult
	if err := c.callJSON(ctx, "import", http.MethodPost, "/chat/import/", document, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		return nil, &internal.TransportError{Op: "import", Status: http.StatusOK, Err: fmt.Errorf("response carries no session id")}
	}
	return &out, nil
}
