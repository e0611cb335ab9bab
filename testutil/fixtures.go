package testutil

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FixtureEpoch is the timestamp of the first message in generated fixtures
var FixtureEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ExportDocumentJSON returns an export document for sessionID with n
// messages alternating between user and assistant.
func ExportDocumentJSON(sessionID, title string, n int) []byte {
	type message struct {
		ID         string `json:"id"`
		Role       string `json:"role"`
		Content    string `json:"content"`
		Timestamp  string `json:"timestamp"`
		Compressed bool   `json:"compressed"`
	}
	messages := make([]message, 0, n)
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		messages = append(messages, message{
			ID:         fmt.Sprintf("m%d", i+1),
			Role:       role,
			Content:    fmt.Sprintf("message %d", i+1),
			Timestamp:  FixtureEpoch.Add(time.Duration(i) * time.Second).Format("2006-01-02T15:04:05.000Z"),
			Compressed: true,
		})
	}
	doc := map[string]any{
		"sessionId": sessionID,
		"title":     title,
		"messages":  messages,
		"files":     []any{},
		"metadata": map[string]any{
			"exportedAt":       FixtureEpoch.Add(time.Hour).Format("2006-01-02T15:04:05.000Z"),
			"version":          "1.0",
			"compressionRatio": 0,
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		panic(err)
	}
	return data
}

// StreamBody renders chunks as the backend's streamed reply: one
// "data: {...}" line per chunk, each followed by a blank line.
func StreamBody(chunks ...string) string {
	var b strings.Builder
	for _, c := range chunks {
		payload, _ := json.Marshal(map[string]string{"content": c})
		b.WriteString("data: ")
		b.Write(payload)
		b.WriteString("\n\n")
	}
	return b.String()
}
