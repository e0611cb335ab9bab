package internal

import (
	"fmt"
	"time"
)

// testEpoch is the fixed instant test fixtures are stamped from
var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// CreateTestSession creates a test session with sample data
func CreateTestSession(id string) *Session {
	return &Session{
		SessionSummary: SessionSummary{
			SessionID: id,
			Title:     "Test Conversation",
			CreatedAt: testEpoch,
			UpdatedAt: testEpoch.Add(time.Minute),
		},
		Messages: []Message{
			{
				ID:        id + "-1",
				Role:      RoleUser,
				Content:   "Hello, how are you?",
				Timestamp: testEpoch,
			},
			{
				ID:        id + "-2",
				Role:      RoleAssistant,
				Content:   "I'm doing well, thank you!",
				Timestamp: testEpoch.Add(1500 * time.Millisecond),
			},
		},
	}
}

// CreateTestSessionWithMessages creates a test session with custom messages
func CreateTestSessionWithMessages(id string, messages []Message) *Session {
	return &Session{
		SessionSummary: SessionSummary{
			SessionID: id,
			Title:     "Test Conversation",
			CreatedAt: testEpoch,
			UpdatedAt: testEpoch,
		},
		Messages: messages,
	}
}

// CreateTestMessages creates n alternating user/assistant messages one
// second apart.
func CreateTestMessages(n int) []Message {
	messages := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		messages = append(messages, Message{
			ID:        fmt.Sprintf("m%d", i+1),
			Role:      role,
			Content:   fmt.Sprintf("message %d", i+1),
			Timestamp: testEpoch.Add(time.Duration(i) * time.Second),
		})
	}
	return messages
}

// CreateTestFile creates a parsed file whose content has the given length
func CreateTestFile(id int, name string, contentLen int) ParsedFile {
	content := make([]byte, contentLen)
	for i := range content {
		content[i] = 'a' + byte(i%26)
	}
	return ParsedFile{
		ID:            id,
		OriginalName:  name,
		FileType:      "txt",
		FileSize:      int64(contentLen),
		ParsedContent: string(content),
		CreatedAt:     testEpoch,
	}
}

// CreateTestSharedSession creates a shared session snapshot
func CreateTestSharedSession(sessionID string, editable bool, messages []Message) *SharedSession {
	return &SharedSession{
		SessionID:   sessionID,
		Title:       "Shared Chat",
		Messages:    messages,
		LastSynced:  testEpoch,
		AccessCount: 1,
		IsEditable:  editable,
		PDFURL:      "/api/chat/shared/tok/pdf/",
	}
}
