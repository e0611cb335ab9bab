package internal

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddMessage(t *testing.T) {
	store := NewStore()

	var ids []string
	for i, content := range []string{"a", "b", "c"} {
		before := len(store.Messages())
		id := store.AddMessage(RoleUser, content)
		ids = append(ids, id)

		messages := store.Messages()
		require.Len(t, messages, before+1, "message %d", i)
		last := messages[len(messages)-1]
		assert.Equal(t, id, last.ID)
		assert.Equal(t, content, last.Content)
		assert.False(t, last.Timestamp.IsZero())
	}

	assert.Len(t, uniq(ids), len(ids), "ids must be unique")
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i], "ids sort in creation order")
	}
}

func uniq(ids []string) map[string]bool {
	m := make(map[string]bool)
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestStore_UpdateMessage(t *testing.T) {
	store := NewStore()
	first := store.AddMessage(RoleUser, "one")
	store.AddMessage(RoleAssistant, "two")

	store.UpdateMessage(first, "uno")
	msg, ok := store.Message(first)
	require.True(t, ok)
	assert.Equal(t, "uno", msg.Content)
	assert.Equal(t, RoleUser, msg.Role)

	before := store.Messages()
	store.UpdateMessage("no-such-id", "ignored")
	assert.Equal(t, before, store.Messages())
}

func TestStore_SetCurrentSession(t *testing.T) {
	store := NewStore()
	store.AddMessage(RoleUser, "hello")

	store.SetCurrentSession(SessionRef{})
	assert.Len(t, store.Messages(), 1, "the zero ref keeps messages")

	store.SetCurrentSession(ConfirmedSession("s1"))
	assert.Empty(t, store.Messages(), "a real ref clears messages")
	assert.Equal(t, ConfirmedSession("s1"), store.CurrentSession())
}

func TestStore_ClearChat(t *testing.T) {
	store := NewStore()
	store.SetCurrentSession(ConfirmedSession("s1"))
	store.AddMessage(RoleUser, "hello")
	store.SetError("boom")
	store.SetSessions([]SessionSummary{{SessionID: "s1"}})

	store.ClearChat()

	assert.Empty(t, store.Messages())
	assert.True(t, store.CurrentSession().IsZero())
	assert.Empty(t, store.ErrorMessage())
	assert.Len(t, store.Sessions(), 1, "the session list is kept")
}

func TestStore_SetMessagesCopies(t *testing.T) {
	store := NewStore()
	input := CreateTestMessages(2)
	store.SetMessages(input)

	input[0].Content = "changed"
	assert.Equal(t, "message 1", store.Messages()[0].Content)

	out := store.Messages()
	out[1].Content = "changed"
	assert.Equal(t, "message 2", store.Messages()[1].Content)
}

func TestStore_Flags(t *testing.T) {
	store := NewStore()
	store.SetLoading(true)
	assert.True(t, store.Loading())
	store.SetLoading(false)
	assert.False(t, store.Loading())

	store.SetError("bad")
	assert.Equal(t, "bad", store.ErrorMessage())
	store.ClearError()
	assert.Empty(t, store.ErrorMessage())

	files := []ParsedFile{CreateTestFile(1, "a.txt", 3)}
	store.SetFiles(files)
	assert.Equal(t, files, store.Files())
}

func TestStore_LocalSessionLifecycle(t *testing.T) {
	store := NewStore()
	store.AddMessage(RoleUser, "hello")

	local, minted := store.BeginLocalSession()
	require.True(t, minted)
	assert.True(t, local.IsLocal())
	assert.Len(t, store.Messages(), 1, "minting keeps messages")

	again, minted := store.BeginLocalSession()
	assert.False(t, minted)
	assert.Equal(t, local, again)

	assert.False(t, store.ConfirmSession(LocalSession("other"), "srv"))
	assert.False(t, store.ConfirmSession(local, ""))
	assert.True(t, store.ConfirmSession(local, "srv"))
	assert.Equal(t, ConfirmedSession("srv"), store.CurrentSession())

	// A confirmed ref is never replaced by reconcile.
	assert.False(t, store.ConfirmSession(local, "other"))
	assert.Equal(t, ConfirmedSession("srv"), store.CurrentSession())
}

func TestStore_EpochGuards(t *testing.T) {
	store := NewStore()
	epoch := store.Epoch()

	id, ok := store.AddMessageIfEpoch(epoch, RoleAssistant, "a")
	require.True(t, ok)
	assert.True(t, store.UpdateMessageIfEpoch(epoch, id, "ab"))

	store.ClearChat()
	assert.NotEqual(t, epoch, store.Epoch())

	assert.False(t, store.UpdateMessageIfEpoch(epoch, id, "abc"))
	_, ok = store.AddMessageIfEpoch(epoch, RoleAssistant, "x")
	assert.False(t, ok)
	assert.Empty(t, store.Messages())

	// Appending within a conversation does not change the epoch.
	epoch = store.Epoch()
	store.AddMessage(RoleUser, "hi")
	store.SetLoading(true)
	store.SetSessions(nil)
	assert.Equal(t, epoch, store.Epoch())
}

func TestStore_Subscribe(t *testing.T) {
	store := NewStore()
	var (
		mu     sync.Mutex
		states []State
	)
	cancel := store.Subscribe(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	store.AddMessage(RoleUser, "hi")
	store.SetLoading(true)
	cancel()
	store.SetLoading(false)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 2)
	assert.Len(t, states[0].Messages, 1)
	assert.True(t, states[1].Loading)
}

func TestStore_SubscriberMayReadStore(t *testing.T) {
	store := NewStore()
	seen := make(chan int, 1)
	store.Subscribe(func(State) {
		select {
		case seen <- len(store.Messages()):
		default:
		}
	})

	store.AddMessage(RoleUser, "hi")
	select {
	case n := <-seen:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("subscriber was not called")
	}
}

func TestStore_ConcurrentMutation(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := store.AddMessage(RoleUser, "x")
				store.UpdateMessage(id, "y")
				_ = store.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, store.Messages(), 400)
}
