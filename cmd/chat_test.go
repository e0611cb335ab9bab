package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/chatline/internal"
	"github.com/iksnae/chatline/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCommand_OneShot(t *testing.T) {
	fb, api := newCLIBackend(t)
	fb.SetReply(func(string) []string { return []string{"Hello", ", ", "world"} })

	out, err := runCLI(t, "", withAPI(api, "chat", "hi", "there")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, world")
	assert.Contains(t, out, "session ")
}

func TestChatCommand_NoStream(t *testing.T) {
	_, api := newCLIBackend(t)

	out, err := runCLI(t, "", withAPI(api, "chat", "--no-stream", "ping")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Echo: ping")
}

func TestChatCommand_ContinueSession(t *testing.T) {
	fb, api := newCLIBackend(t)
	testutil.InsertSession(t, fb.DB, "s1", "Existing", testutil.FixtureEpoch)
	testutil.InsertMessage(t, fb.DB, "s1", "user", "earlier", testutil.FixtureEpoch)

	out, err := runCLI(t, "", withAPI(api, "chat", "--session", "s1", "again")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Echo: again")
	assert.Contains(t, out, "session s1")

	_, err = runCLI(t, "", withAPI(api, "chat", "--session", "missing", "x")...)
	assert.Error(t, err)
}

func TestChatCommand_Interactive(t *testing.T) {
	_, api := newCLIBackend(t)

	out, err := runCLI(t, "first\n/session\n/new\nsecond\n/quit\nnever sent\n", withAPI(api, "chat")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Echo: first")
	assert.Contains(t, out, "Started a new conversation")
	assert.Contains(t, out, "Echo: second")
	assert.NotContains(t, out, "Echo: never sent")
}

func TestChatCommand_BackendDown(t *testing.T) {
	fb, api := newCLIBackend(t)
	fb.Fail("/chat/", 500, "boom")

	_, err := runCLI(t, "", withAPI(api, "chat", "hello")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), internal.SendFailedMessage)
}

func TestReplyPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &replyPrinter{w: &buf}

	user := internal.Message{ID: "u1", Role: internal.RoleUser, Content: "q"}
	p.onState(internal.State{Messages: []internal.Message{user}})
	assert.Empty(t, buf.String(), "user messages are not echoed")

	for _, content := range []string{"The", "The quick", "The quick", "The quick fox"} {
		p.onState(internal.State{Messages: []internal.Message{user, {ID: "a1", Role: internal.RoleAssistant, Content: content}}})
	}
	p.finish()
	p.finish()

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "The quick fox"))
	assert.True(t, strings.HasSuffix(out, "The quick fox\n"))
}
