package internal

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultSyncInterval is how often a shared session is re-fetched
const DefaultSyncInterval = 30 * time.Second

const (
	syncNetworkMessage = "Network error. Please check your connection."
	syncFailedMessage  = "Failed to load shared session"
)

var (
	// ErrSyncInactive is returned when refreshing a synchronizer that was
	// never started or has been stopped.
	ErrSyncInactive = errors.New("shared session sync is not active")
	// ErrNotEditable is returned when posting to a read-only share.
	ErrNotEditable = errors.New("shared session does not allow editing")
)

// SharedSessionSource is the part of the backend API the Synchronizer uses
type SharedSessionSource interface {
	GetSharedSession(ctx context.Context, token string) (*SharedSession, error)
	AddSharedMessage(ctx context.Context, token string, role Role, content string) error
}

// Synchronizer keeps the store approximately in step with a shared session by
// polling. Each successful fetch replaces the transcript wholesale: the last
// fetch wins and concurrent edits are never merged. A failed fetch records an
// error and leaves the previous transcript on display.
type Synchronizer struct {
	store    *Store
	source   SharedSessionSource
	interval time.Duration

	// applyMu serializes applying fetch results, so Stop can wait for an
	// in-progress apply before returning.
	applyMu sync.Mutex

	mu         sync.Mutex
	token      string
	gen        uint64
	cancel     context.CancelFunc
	done       chan struct{}
	loading    bool
	refreshing bool
	err        string
	snapshot   *SharedSession
}

// NewSynchronizer creates a Synchronizer. A non-positive interval selects
// DefaultSyncInterval.
func NewSynchronizer(store *Store, source SharedSessionSource, interval time.Duration) *Synchronizer {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Synchronizer{store: store, source: source, interval: interval}
}

// Start activates syncing of the share identified by token: one fetch right
// away, then one per interval until Stop or until ctx is done. Starting again
// with another token replaces the previous activation.
func (s *Synchronizer) Start(ctx context.Context, token string) {
	s.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.token = token
	s.cancel = cancel
	s.done = done
	s.loading = true
	s.err = ""
	s.snapshot = nil
	s.mu.Unlock()

	LogDebug("starting shared session sync for %s every %s", token, s.interval)
	go s.run(ctx, gen, token, done)
}

func (s *Synchronizer) run(ctx context.Context, gen uint64, token string, done chan struct{}) {
	defer close(done)

	_ = s.fetch(ctx, gen, token)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.fetch(ctx, gen, token)
		}
	}
}

// Stop deactivates syncing. When Stop returns, no fetch result will be
// applied to the store until the next Start.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.gen++
	s.token = ""
	s.loading = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	// Wait out an apply that passed the generation check before the bump.
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
}

// Refresh runs the same fetch out of band. Refreshing reports true while it
// runs, independently of the periodic fetches.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	token, gen := s.token, s.gen
	if token == "" {
		s.mu.Unlock()
		return ErrSyncInactive
	}
	s.refreshing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	return s.fetch(ctx, gen, token)
}

// Post adds a message to an editable share and refreshes the view
func (s *Synchronizer) Post(ctx context.Context, role Role, content string) error {
	s.mu.Lock()
	token, snap := s.token, s.snapshot
	s.mu.Unlock()

	if token == "" {
		return ErrSyncInactive
	}
	if snap != nil && !snap.IsEditable {
		return ErrNotEditable
	}
	if err := s.source.AddSharedMessage(ctx, token, role, content); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *Synchronizer) fetch(ctx context.Context, gen uint64, token string) error {
	shared, err := s.source.GetSharedSession(ctx, token)

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSyncInactive
	}
	if err != nil {
		s.err = syncErrorMessage(err)
		s.loading = false
		s.mu.Unlock()
		LogWarn("Failed to sync shared session %s: %v", token, err)
		return err
	}
	s.snapshot = shared
	s.err = ""
	s.loading = false
	s.mu.Unlock()

	ref := ConfirmedSession(shared.SessionID)
	if s.store.CurrentSession() != ref {
		s.store.SetCurrentSession(ref)
	}
	s.store.SetMessages(shared.Messages)
	LogDebug("synced shared session %s: %d message(s)", token, len(shared.Messages))
	return nil
}

func syncErrorMessage(err error) string {
	var te *TransportError
	if errors.As(err, &te) && !te.IsNetwork() {
		if te.Message != "" {
			return te.Message
		}
		return syncFailedMessage
	}
	return syncNetworkMessage
}

// Err returns the sync error, empty when the last fetch succeeded
func (s *Synchronizer) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Loading reports whether the first fetch of the activation is pending
func (s *Synchronizer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Refreshing reports whether a manual refresh is running
func (s *Synchronizer) Refreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshing
}

// Active reports whether a share is being synced
func (s *Synchronizer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Snapshot returns the metadata of the last successful fetch, nil before one
func (s *Synchronizer) Snapshot() *SharedSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil
	}
	snap := *s.snapshot
	snap.Messages = append([]Message(nil), s.snapshot.Messages...)
	return &snap
}
