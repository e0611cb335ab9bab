package internal

import (
	"encoding/json"
	"strings"
)

// FramePrefix marks a line that carries a JSON fragment payload
const FramePrefix = "data: "

// Fragment is one decoded piece of a streamed reply
type Fragment struct {
	Content string `json:"content"`
	// Error is set by the backend when the upstream model failed mid-stream.
	Error string `json:"error,omitempty"`
}

// DecodeFrame decodes a single line of the stream. Lines without the frame
// prefix, payloads that are not JSON objects, and frames without content
// yield ok == false.
func DecodeFrame(line string) (Fragment, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, FramePrefix) {
		return Fragment{}, false
	}

	var frag Fragment
	if err := json.Unmarshal([]byte(line[len(FramePrefix):]), &frag); err != nil {
		return Fragment{}, false
	}
	if frag.Error != "" {
		LogDebug("stream frame reported an upstream error: %s", frag.Error)
	}
	if frag.Content == "" {
		return Fragment{}, false
	}
	return frag, true
}
