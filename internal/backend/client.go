// Package backend is the HTTP client for the chat backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iksnae/chatline/internal"
)

// DefaultBaseURL is used when no API URL is configured
const DefaultBaseURL = "http://localhost:8000/api"

// maxErrorBody bounds how much of a failed response is read for its message
const maxErrorBody = 1 << 20

// Client talks to the chat backend. Regular requests use a client with a
// timeout; streamed replies use one without, so a long answer is bounded only
// by the caller's context.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the timeout of non-streaming requests
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces both underlying HTTP clients
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
		c.stream = hc
	}
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		stream:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveURL turns a server-relative path such as a share's pdf_url into an
// absolute URL on the backend host.
func (c *Client) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and returns the response when the status is 2xx. Any other
// outcome becomes a *internal.TransportError.
func (c *Client) do(hc *http.Client, op string, req *http.Request) (*http.Response, error) {
	internal.LogDebug("%s %s", req.Method, req.URL)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &internal.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		return nil, statusError(op, resp)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	te := &internal.TransportError{
		Op:     op,
		Status: resp.StatusCode,
		Err:    fmt.Errorf("unexpected status %s", resp.Status),
	}
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		te.Message = payload.Error
		if te.Message == "" {
			te.Message = payload.Detail
		}
	}
	return te
}

// callJSON performs a request and decodes a JSON response into out
func (c *Client) callJSON(ctx context.Context, op, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return &internal.TransportError{Op: op, Err: err}
	}
	resp, err := c.do(c.http, op, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := decodeBody(resp, out); err != nil {
		return &internal.TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func decodeBody(resp *http.Response, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// chatRequest is the body of POST /chat/
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Stream    bool   `json:"stream"`
}

// StreamChat posts a message with streaming enabled and returns the response
// body, a sequence of "data: {...}" lines. The caller closes it.
func (c *Client) StreamChat(ctx context.Context, message, sessionID string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/chat/", chatRequest{
		Message:   message,
		SessionID: sessionID,
		Stream:    true,
	})
	if err != nil {
		return nil, &internal.TransportError{Op: "send", Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.do(c.stream, "send", req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// SendMessage posts a message without streaming and returns the whole reply
func (c *Client) SendMessage(ctx context.Context, message, sessionID string) (*internal.ChatReply, error) {
	var out struct {
		Response  string   `json:"response"`
		SessionID string   `json:"session_id"`
		MessageID StringID `json:"message_id"`
	}
	err := c.callJSON(ctx, "send", http.MethodPost, "/chat/", chatRequest{
		Message:   message,
		SessionID: sessionID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &internal.ChatReply{
		Response:  out.Response,
		SessionID: out.SessionID,
		MessageID: string(out.MessageID),
	}, nil
}

// ListSessions returns the session summaries known to the backend
func (c *Client) ListSessions(ctx context.Context) ([]internal.SessionSummary, error) {
	var out []wireSession
	if err := c.callJSON(ctx, "list sessions", http.MethodGet, "/chat/sessions/", nil, &out); err != nil {
		return nil, err
	}
	sessions := make([]internal.SessionSummary, 0, len(out))
	for _, ws := range out {
		sessions = append(sessions, ws.summary())
	}
	return sessions, nil
}

// GetSession returns a session with its transcript
func (c *Client) GetSession(ctx context.Context, sessionID string) (*internal.Session, error) {
	var out wireSession
	path := "/chat/session/" + url.PathEscape(sessionID) + "/"
	if err := c.callJSON(ctx, "get session", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	messages, err := toMessages(out.Messages)
	if err != nil {
		return nil, &internal.TransportError{Op: "get session", Status: http.StatusOK, Err: err}
	}
	session := &internal.Session{SessionSummary: out.summary(), Messages: messages}
	if session.SessionID == "" {
		session.SessionID = sessionID
	}
	return session, nil
}

// DeleteSession deletes a session on the backend
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	path := "/chat/session/" + url.PathEscape(sessionID) + "/delete/"
	return c.callJSON(ctx, "delete session", http.MethodDelete, path, nil, nil)
}

// FetchDocument downloads a shared chat file from an arbitrary URL
func (c *Client) FetchDocument(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &internal.TransportError{Op: "fetch document", Err: err}
	}
	resp, err := c.do(c.http, "fetch document", req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
