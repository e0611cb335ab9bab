package internal

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// SendFailedMessage is shown in the chat error slot when a send fails
const SendFailedMessage = "Failed to send message. Please try again."

// backendTitleLimit is how many characters of the first message the backend
// keeps as a new session's title.
const backendTitleLimit = 50

// ChatBackend is the part of the backend API the Streamer talks to
type ChatBackend interface {
	StreamChat(ctx context.Context, message, sessionID string) (io.ReadCloser, error)
	SendMessage(ctx context.Context, message, sessionID string) (*ChatReply, error)
	ListSessions(ctx context.Context) ([]SessionSummary, error)
}

// Streamer turns one outgoing user message into a growing assistant reply.
// A Streamer handles one reply at a time; callers must not call Send while a
// previous call is still running.
type Streamer struct {
	store   *Store
	backend ChatBackend
	timeout time.Duration

	mu          sync.Mutex
	streamingID string
}

// NewStreamer creates a Streamer writing into store
func NewStreamer(store *Store, backend ChatBackend) *Streamer {
	return &Streamer{store: store, backend: backend}
}

// SetTimeout bounds a whole send. Zero means no limit.
func (s *Streamer) SetTimeout(d time.Duration) {
	s.timeout = d
}

// StreamingID returns the id of the assistant message currently growing, or
// an empty string when no reply is streaming.
func (s *Streamer) StreamingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamingID
}

func (s *Streamer) setStreamingID(id string) {
	s.mu.Lock()
	s.streamingID = id
	s.mu.Unlock()
}

// Send appends text as a user message and streams the assistant reply into
// the store. Failures are recorded in the store's error slot and returned.
func (s *Streamer) Send(ctx context.Context, text string) error {
	s.store.ClearError()
	before := s.store.CurrentSession()
	s.store.AddMessage(RoleUser, text)
	epoch := s.store.Epoch()

	s.store.SetLoading(true)
	defer func() {
		s.store.SetLoading(false)
		s.setStreamingID("")
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	body, err := s.backend.StreamChat(ctx, text, before.ID)
	if err != nil {
		return s.fail(err)
	}
	defer func() { _ = body.Close() }()

	if err := s.consume(body, epoch); err != nil {
		return s.fail(err)
	}

	if s.store.Epoch() != epoch {
		LogDebug("conversation switched while streaming; skipping session reconcile")
		return nil
	}
	s.reconcile(ctx, before, text, "")
	return nil
}

// SendOnce is Send without streaming: the whole reply arrives in one response
func (s *Streamer) SendOnce(ctx context.Context, text string) error {
	s.store.ClearError()
	before := s.store.CurrentSession()
	s.store.AddMessage(RoleUser, text)
	epoch := s.store.Epoch()

	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err := s.backend.SendMessage(ctx, text, before.ID)
	if err != nil {
		return s.fail(err)
	}
	if _, ok := s.store.AddMessageIfEpoch(epoch, RoleAssistant, reply.Response); !ok {
		LogDebug("conversation switched while waiting for reply; dropping it")
		return nil
	}
	s.reconcile(ctx, before, text, reply.SessionID)
	return nil
}

func (s *Streamer) fail(err error) error {
	LogError("Error sending message: %v", err)
	s.store.SetError(SendFailedMessage)
	return err
}

// consume applies fragments in wire order. The first fragment creates the
// assistant message; later ones extend it with the running concatenation.
func (s *Streamer) consume(r io.Reader, epoch uint64) error {
	br := bufio.NewReader(r)
	var (
		assistantID string
		content     strings.Builder
		dropped     int
	)

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if frag, ok := DecodeFrame(line); ok {
				content.WriteString(frag.Content)
				if assistantID == "" {
					id, applied := s.store.AddMessageIfEpoch(epoch, RoleAssistant, frag.Content)
					if applied {
						assistantID = id
						s.setStreamingID(id)
					} else {
						dropped++
					}
				} else if !s.store.UpdateMessageIfEpoch(epoch, assistantID, content.String()) {
					dropped++
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	if dropped > 0 {
		LogDebug("dropped %d fragment(s) for a conversation that is no longer active", dropped)
	}
	return nil
}

// reconcile makes a conversation started without a session visible in the
// session list, and replaces the local reference with the server id once the
// backend has one. serverID is known up front only for non-streaming replies.
func (s *Streamer) reconcile(ctx context.Context, before SessionRef, text, serverID string) {
	switch {
	case before.Confirmed:
		return
	case before.IsLocal():
		// The local id was sent as session_id and the backend adopted it.
		if serverID == "" {
			serverID = before.ID
		}
		s.store.ConfirmSession(before, serverID)
		s.refreshSessions(ctx)
		return
	}

	known := make(map[string]bool)
	for _, ss := range s.store.Sessions() {
		known[ss.SessionID] = true
	}

	local, minted := s.store.BeginLocalSession()
	if !minted {
		return
	}
	if serverID != "" {
		s.store.ConfirmSession(local, serverID)
	}

	sessions, ok := s.refreshSessions(ctx)
	if !ok || serverID != "" {
		return
	}
	if id := pickNewSession(sessions, known, text); id != "" {
		s.store.ConfirmSession(local, id)
	} else {
		LogDebug("could not match a server session for %s; keeping it local", local)
	}
}

func (s *Streamer) refreshSessions(ctx context.Context) ([]SessionSummary, bool) {
	sessions, err := s.backend.ListSessions(ctx)
	if err != nil {
		LogWarn("Failed to refresh sessions: %v", err)
		return nil, false
	}
	s.store.SetSessions(sessions)
	return sessions, true
}

// pickNewSession finds the server session created by the first message of a
// conversation: the only one not known before, or else the newest whose title
// matches what the backend derives from the message.
func pickNewSession(sessions []SessionSummary, known map[string]bool, text string) string {
	var fresh []SessionSummary
	for _, ss := range sessions {
		if !known[ss.SessionID] {
			fresh = append(fresh, ss)
		}
	}
	if len(fresh) == 1 {
		return fresh[0].SessionID
	}

	title := BackendTitle(text)
	var best *SessionSummary
	for i := range fresh {
		if fresh[i].Title != title {
			continue
		}
		if best == nil || fresh[i].CreatedAt.After(best.CreatedAt) {
			best = &fresh[i]
		}
	}
	if best == nil {
		return ""
	}
	return best.SessionID
}

// BackendTitle returns the title the backend gives a session started by text
func BackendTitle(text string) string {
	r := []rune(text)
	if len(r) > backendTitleLimit {
		return string(r[:backendTitleLimit]) + "..."
	}
	return text
}
