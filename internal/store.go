package internal

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// State is a point-in-time copy of everything the Store holds
type State struct {
	Session  SessionRef
	Messages []Message
	Loading  bool
	Error    string
	Sessions []SessionSummary
	Files    []ParsedFile
	Epoch    uint64
}

// Store is the in-memory transcript of the active session. All mutation goes
// through its methods; every method is total and holds the lock for the whole
// update, so readers never observe a half-applied change.
type Store struct {
	mu       sync.RWMutex
	session  SessionRef
	messages []Message
	loading  bool
	err      string
	sessions []SessionSummary
	files    []ParsedFile
	epoch    uint64

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int

	now   func() time.Time
	newID func() string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		subs:  make(map[int]func(State)),
		now:   time.Now,
		newID: func() string { return ulid.Make().String() },
	}
}

// SetCurrentSession switches the active session. A non-zero ref clears the
// transcript so the caller can load it; the zero ref leaves messages as they are.
func (s *Store) SetCurrentSession(ref SessionRef) {
	s.mu.Lock()
	s.session = ref
	if !ref.IsZero() {
		s.messages = nil
	}
	s.epoch++
	s.mu.Unlock()
	s.notify()
}

// BeginLocalSession mints a local session reference when none is active.
// Messages are kept. Returns the active ref and whether a new one was minted.
func (s *Store) BeginLocalSession() (SessionRef, bool) {
	s.mu.Lock()
	if !s.session.IsZero() {
		ref := s.session
		s.mu.Unlock()
		return ref, false
	}
	s.session = LocalSession(uuid.NewString())
	ref := s.session
	s.mu.Unlock()
	s.notify()
	return ref, true
}

// ConfirmSession replaces the given local reference with the server id. It is
// a no-op when local is no longer the active session.
func (s *Store) ConfirmSession(local SessionRef, serverID string) bool {
	s.mu.Lock()
	if serverID == "" || !local.IsLocal() || s.session != local {
		s.mu.Unlock()
		return false
	}
	s.session = ConfirmedSession(serverID)
	s.mu.Unlock()
	s.notify()
	return true
}

// AddMessage appends a message with a fresh id and the current time, and
// returns the id.
func (s *Store) AddMessage(role Role, content string) string {
	s.mu.Lock()
	msg := Message{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify()
	return msg.ID
}

// UpdateMessage replaces the content of the message with the given id. Unknown
// ids are ignored.
func (s *Store) UpdateMessage(id, content string) {
	s.mu.Lock()
	found := s.updateLocked(id, content)
	s.mu.Unlock()
	if found {
		s.notify()
	}
}

func (s *Store) updateLocked(id, content string) bool {
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Content = content
			return true
		}
	}
	return false
}

// AddMessageIfEpoch appends like AddMessage, but only while the store is
// still at the given epoch.
func (s *Store) AddMessageIfEpoch(epoch uint64, role Role, content string) (string, bool) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return "", false
	}
	msg := Message{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify()
	return msg.ID, true
}

// UpdateMessageIfEpoch updates like UpdateMessage, but only while the store
// is still at the given epoch.
func (s *Store) UpdateMessageIfEpoch(epoch uint64, id, content string) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	found := s.updateLocked(id, content)
	s.mu.Unlock()
	if found {
		s.notify()
	}
	return true
}

// SetMessages replaces the whole transcript
func (s *Store) SetMessages(messages []Message) {
	s.mu.Lock()
	s.messages = append([]Message(nil), messages...)
	s.epoch++
	s.mu.Unlock()
	s.notify()
}

// SetLoading sets the single-flight loading flag
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

// SetError sets the chat error message. An empty string clears it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
	s.notify()
}

// ClearError clears the chat error
func (s *Store) ClearError() {
	s.SetError("")
}

// ClearChat starts a new chat: no messages, no session, no error
func (s *Store) ClearChat() {
	s.mu.Lock()
	s.messages = nil
	s.session = SessionRef{}
	s.err = ""
	s.epoch++
	s.mu.Unlock()
	s.notify()
}

// SetSessions replaces the cached session list
func (s *Store) SetSessions(sessions []SessionSummary) {
	s.mu.Lock()
	s.sessions = append([]SessionSummary(nil), sessions...)
	s.mu.Unlock()
	s.notify()
}

// SetFiles replaces the cached file list
func (s *Store) SetFiles(files []ParsedFile) {
	s.mu.Lock()
	s.files = append([]ParsedFile(nil), files...)
	s.mu.Unlock()
	s.notify()
}

// CurrentSession returns the active session reference
func (s *Store) CurrentSession() SessionRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Messages returns a copy of the transcript
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// Message looks up a message by id
func (s *Store) Message(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Sessions returns a copy of the cached session list
func (s *Store) Sessions() []SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SessionSummary(nil), s.sessions...)
}

// Files returns a copy of the cached file list
func (s *Store) Files() []ParsedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ParsedFile(nil), s.files...)
}

// Loading reports whether a reply is in flight
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// ErrorMessage returns the chat error, empty when none
func (s *Store) ErrorMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Epoch changes whenever the displayed conversation is switched or replaced.
// Work started under one epoch must not write into another.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Snapshot returns a copy of the whole state
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	return State{
		Session:  s.session,
		Messages: append([]Message(nil), s.messages...),
		Loading:  s.loading,
		Error:    s.err,
		Sessions: append([]SessionSummary(nil), s.sessions...),
		Files:    append([]ParsedFile(nil), s.files...),
		Epoch:    s.epoch,
	}
}

// Subscribe registers fn to be called with a fresh snapshot after every
// mutation. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	if len(s.subs) == 0 {
		s.subMu.Unlock()
		return
	}
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	state := s.Snapshot()
	for _, fn := range fns {
		fn(state)
	}
}
