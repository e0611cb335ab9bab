package testutil

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	titleLimit    = 50
	maxUploadSize = 10 * 1024 * 1024
	timeLayout    = "2006-01-02T15:04:05.000000Z07:00"
)

var supportedTypes = map[string]bool{"pdf": true, "docx": true, "csv": true, "txt": true}

// FakeBackend is an in-process chat backend serving the same routes as the
// real API, backed by an in-memory SQLite database.
type FakeBackend struct {
	Server *httptest.Server
	DB     *sql.DB

	mu       sync.Mutex
	reply    func(message string) []string
	failures map[string]failure
	now      func() time.Time
}

type failure struct {
	status  int
	message string
}

// NewFakeBackend starts a fake backend that is shut down when the test ends.
// By default the assistant echoes the message back in two chunks.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{
		DB:       CreateInMemoryDB(t),
		reply:    echoReply,
		failures: make(map[string]failure),
		now:      func() time.Time { return time.Now().UTC() },
	}
	fb.Server = httptest.NewServer(fb.routes())
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the API root to configure a client with
func (fb *FakeBackend) URL() string {
	return fb.Server.URL + "/api"
}

// SetReply replaces how the assistant answers. Each returned string is sent
// as one streamed fragment.
func (fb *FakeBackend) SetReply(reply func(message string) []string) {
	fb.mu.Lock()
	fb.reply = reply
	fb.mu.Unlock()
}

// Fail makes every request to path, relative to the API root, answer with
// status and an {"error": message} body until Recover is called.
func (fb *FakeBackend) Fail(path string, status int, message string) {
	fb.mu.Lock()
	fb.failures[path] = failure{status: status, message: message}
	fb.mu.Unlock()
}

// Recover clears every failure set with Fail
func (fb *FakeBackend) Recover() {
	fb.mu.Lock()
	fb.failures = make(map[string]failure)
	fb.mu.Unlock()
}

// AddMessage appends a message to a session as if another client wrote it
func (fb *FakeBackend) AddMessage(t *testing.T, sessionID, role, content string) {
	t.Helper()
	InsertMessage(t, fb.DB, sessionID, role, content, fb.now())
}

// ExpireShare moves a share's expiry into the past
func (fb *FakeBackend) ExpireShare(t *testing.T, token string) {
	t.Helper()
	past := fb.now().Add(-time.Hour).UnixNano()
	if _, err := fb.DB.Exec("UPDATE shares SET expires_at = ? WHERE token = ?", past, token); err != nil {
		t.Fatalf("Failed to expire share: %v", err)
	}
}

// AccessCount returns how often a share has been fetched
func (fb *FakeBackend) AccessCount(t *testing.T, token string) int {
	t.Helper()
	var n int
	if err := fb.DB.QueryRow("SELECT access_count FROM shares WHERE token = ?", token).Scan(&n); err != nil {
		t.Fatalf("Failed to read access count: %v", err)
	}
	return n
}

func echoReply(message string) []string {
	return []string{"Echo: ", message}
}

func (fb *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Use(fb.injectFailures)

		r.Post("/chat/", fb.handleChat)
		r.Get("/chat/sessions/", fb.handleListSessions)
		r.Get("/chat/session/{id}/", fb.handleGetSession)
		r.Delete("/chat/session/{id}/delete/", fb.handleDeleteSession)
		r.Post("/chat/export/", fb.handleExport)
		r.Post("/chat/import/", fb.handleImport)

		r.Post("/chat/shared/create/", fb.handleCreateShare)
		r.Get("/chat/shared/{token}/", fb.handleGetShared)
		r.Get("/chat/shared/{token}/info/", fb.handleShareInfo)
		r.Post("/chat/shared/{token}/add-message/", fb.handleAddSharedMessage)
		r.Get("/chat/shared/{token}/pdf/", fb.handleSharedPDF)

		r.Get("/file/", fb.handleListFiles)
		r.Post("/file/upload/", fb.handleUpload)
		r.Post("/file/search/", fb.handleSearchFiles)
		r.Get("/file/{id}/", fb.handleGetFile)
		r.Delete("/file/{id}/delete/", fb.handleDeleteFile)
	})
	return r
}

func (fb *FakeBackend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		fb.mu.Lock()
		f, ok := fb.failures[path]
		fb.mu.Unlock()
		if ok {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func formatTime(nanos int64) string {
	return time.Unix(0, nanos).UTC().Format(timeLayout)
}

func sessionTitle(message string) string {
	r := []rune(message)
	if len(r) > titleLimit {
		return string(r[:titleLimit]) + "..."
	}
	return message
}

type message struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type session struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	Messages  []message `json:"messages,omitempty"`
}

func (fb *FakeBackend) loadSession(id string) (*session, error) {
	var (
		s                session
		created, updated int64
	)
	err := fb.DB.QueryRow("SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?", id).
		Scan(&s.SessionID, &s.Title, &created, &updated)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = formatTime(created)
	s.UpdatedAt = formatTime(updated)

	s.Messages, err = fb.loadMessages(id)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (fb *FakeBackend) loadMessages(sessionID string) ([]message, error) {
	rows, err := fb.DB.Query("SELECT id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id", sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]message, 0)
	for rows.Next() {
		var (
			m  message
			at int64
		)
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &at); err != nil {
			return nil, err
		}
		m.Timestamp = formatTime(at)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (fb *FakeBackend) ensureSession(id, firstMessage string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := fb.now().UnixNano()
	_, err := fb.DB.Exec(
		"INSERT OR IGNORE INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		id, sessionTitle(firstMessage), now, now,
	)
	return id, err
}

func (fb *FakeBackend) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
		Stream    bool   `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	id, err := fb.ensureSession(req.SessionID, req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := insertMessage(fb.DB, id, "user", req.Message, fb.now()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	fb.mu.Lock()
	chunks := fb.reply(req.Message)
	fb.mu.Unlock()
	assistantID, err := insertMessage(fb.DB, id, "assistant", strings.Join(chunks, ""), fb.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !req.Stream {
		writeJSON(w, http.StatusOK, map[string]any{
			"response":   strings.Join(chunks, ""),
			"session_id": id,
			"message_id": assistantID,
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for _, c := range chunks {
		_, _ = io.WriteString(w, StreamBody(c))
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (fb *FakeBackend) handleListSessions(w http.ResponseWriter, r *http.Request) {
	rows, err := fb.DB.Query("SELECT id, title, created_at, updated_at FROM sessions ORDER BY updated_at DESC")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	sessions := make([]session, 0)
	for rows.Next() {
		var (
			s                session
			created, updated int64
		)
		if err := rows.Scan(&s.SessionID, &s.Title, &created, &updated); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.CreatedAt = formatTime(created)
		s.UpdatedAt = formatTime(updated)
		sessions = append(sessions, s)
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (fb *FakeBackend) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, err := fb.loadSession(chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (fb *FakeBackend) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := fb.DB.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	_, _ = fb.DB.Exec("DELETE FROM messages WHERE session_id = ?", id)
	_, _ = fb.DB.Exec("DELETE FROM shares WHERE session_id = ?", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

type exportMessage struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	Compressed bool   `json:"compressed"`
}

type exportFile struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

type exportDocument struct {
	SessionID string          `json:"sessionId"`
	Title     string          `json:"title"`
	Messages  []exportMessage `json:"messages"`
	Files     []exportFile    `json:"files"`
	Metadata  map[string]any  `json:"metadata"`
}

func (fb *FakeBackend) handleExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	s, err := fb.loadSession(req.SessionID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	doc := exportDocument{
		SessionID: s.SessionID,
		Title:     s.Title,
		Messages:  make([]exportMessage, 0, len(s.Messages)),
		Files:     []exportFile{},
		Metadata: map[string]any{
			"exportedAt":       fb.now().Format("2006-01-02T15:04:05.000Z"),
			"version":          "1.0",
			"compressionRatio": 0,
		},
	}
	for _, m := range s.Messages {
		at, _ := time.Parse(timeLayout, m.Timestamp)
		doc.Messages = append(doc.Messages, exportMessage{
			ID:         strconv.FormatInt(m.ID, 10),
			Role:       m.Role,
			Content:    m.Content,
			Timestamp:  at.UTC().Format("2006-01-02T15:04:05.000Z"),
			Compressed: true,
		})
	}
	writeJSON(w, http.StatusOK, doc)
}

func (fb *FakeBackend) handleImport(w http.ResponseWriter, r *http.Request) {
	var doc exportDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil || doc.SessionID == "" || doc.Messages == nil {
		writeError(w, http.StatusBadRequest, "Invalid chat file format")
		return
	}

	title := doc.Title
	if title == "" {
		title = "Imported Chat"
	}
	id := uuid.NewString()
	now := fb.now().UnixNano()
	if _, err := fb.DB.Exec("INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)", id, title, now, now); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, m := range doc.Messages {
		at, err := time.Parse(time.RFC3339Nano, m.Timestamp)
		if err != nil {
			at = fb.now()
		}
		if _, err := insertMessage(fb.DB, id, m.Role, m.Content, at); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	for _, f := range doc.Files {
		if _, err := fb.DB.Exec(
			"INSERT INTO files (original_name, file_type, file_size, parsed_content, created_at) VALUES (?, ?, ?, ?, ?)",
			f.Name, f.Type, len(f.Content), f.Content, now,
		); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId":        id,
		"title":            title,
		"importedMessages": len(doc.Messages),
		"importedFiles":    len(doc.Files),
	})
}

type share struct {
	token        string
	sessionID    string
	title        string
	allowEditing bool
	isActive     bool
	accessCount  int
	createdAt    int64
	lastSynced   int64
	expiresAt    sql.NullInt64
}

func (s *share) expiresAtJSON() any {
	if !s.expiresAt.Valid {
		return nil
	}
	return formatTime(s.expiresAt.Int64)
}

func pdfURL(token string) string {
	return "/api/chat/shared/" + token + "/pdf/"
}

// loadShare returns an active, unexpired share or writes the error response
func (fb *FakeBackend) loadShare(w http.ResponseWriter, token string) (*share, bool) {
	var s share
	err := fb.DB.QueryRow(
		`SELECT token, session_id, title, allow_editing, is_active, access_count, created_at, last_synced, expires_at
		 FROM shares WHERE token = ?`, token,
	).Scan(&s.token, &s.sessionID, &s.title, &s.allowEditing, &s.isActive, &s.accessCount, &s.createdAt, &s.lastSynced, &s.expiresAt)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !s.isActive) {
		writeError(w, http.StatusNotFound, "Shared session not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if s.expiresAt.Valid && fb.now().UnixNano() > s.expiresAt.Int64 {
		writeError(w, http.StatusGone, "Shared session has expired")
		return nil, false
	}
	return &s, true
}

func (fb *FakeBackend) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID    string `json:"session_id"`
		Title        string `json:"title"`
		AllowEditing bool   `json:"allow_editing"`
		ExpiresHours int    `json:"expires_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	s, err := fb.loadSession(req.SessionID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	title := req.Title
	if title == "" {
		title = s.Title
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	now := fb.now()
	var expires sql.NullInt64
	if req.ExpiresHours > 0 {
		expires = sql.NullInt64{Int64: now.Add(time.Duration(req.ExpiresHours) * time.Hour).UnixNano(), Valid: true}
	}
	_, err = fb.DB.Exec(
		`INSERT INTO shares (token, session_id, title, allow_editing, created_at, last_synced, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token, req.SessionID, title, req.AllowEditing, now.UnixNano(), now.UnixNano(), expires,
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sh := share{expiresAt: expires}
	writeJSON(w, http.StatusCreated, map[string]any{
		"share_token": token,
		"share_url":   "/shared/" + token,
		"pdf_url":     pdfURL(token),
		"expires_at":  sh.expiresAtJSON(),
	})
}

func (fb *FakeBackend) handleGetShared(w http.ResponseWriter, r *http.Request) {
	sh, ok := fb.loadShare(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	messages, err := fb.loadMessages(sh.sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	now := fb.now().UnixNano()
	if _, err := fb.DB.Exec("UPDATE shares SET access_count = access_count + 1, last_synced = ? WHERE token = ?", now, sh.token); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":   sh.sessionID,
		"title":        sh.title,
		"messages":     messages,
		"is_editable":  sh.allowEditing,
		"last_synced":  formatTime(now),
		"access_count": sh.accessCount + 1,
		"pdf_url":      pdfURL(sh.token),
		"expires_at":   sh.expiresAtJSON(),
	})
}

func (fb *FakeBackend) handleShareInfo(w http.ResponseWriter, r *http.Request) {
	sh, ok := fb.loadShare(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":         sh.title,
		"is_active":     sh.isActive,
		"allow_editing": sh.allowEditing,
		"access_count":  sh.accessCount,
		"created_at":    formatTime(sh.createdAt),
		"last_synced":   formatTime(sh.lastSynced),
		"expires_at":    sh.expiresAtJSON(),
		"pdf_url":       pdfURL(sh.token),
	})
}

func (fb *FakeBackend) handleAddSharedMessage(w http.ResponseWriter, r *http.Request) {
	sh, ok := fb.loadShare(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	if !sh.allowEditing {
		writeError(w, http.StatusForbidden, "This shared session is read-only")
		return
	}
	var req struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "Content is required")
		return
	}
	if req.Role != "user" && req.Role != "assistant" && req.Role != "system" {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}
	id, err := insertMessage(fb.DB, sh.sessionID, req.Role, req.Content, fb.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message_id": id})
}

func (fb *FakeBackend) handleSharedPDF(w http.ResponseWriter, r *http.Request) {
	sh, ok := fb.loadShare(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "chat_"+sh.token+".pdf"))
	_, _ = fmt.Fprintf(w, "%%PDF-1.4\n%% %s\n%%%%EOF\n", sh.title)
}

type file struct {
	ID            int64          `json:"id"`
	OriginalName  string         `json:"original_name"`
	FileType      string         `json:"file_type"`
	FileSize      int64          `json:"file_size"`
	ParsedContent string         `json:"parsed_content"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     string         `json:"created_at"`
}

func (fb *FakeBackend) queryFiles(query string, args ...any) ([]file, error) {
	rows, err := fb.DB.Query("SELECT id, original_name, file_type, file_size, parsed_content, created_at FROM files "+query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := make([]file, 0)
	for rows.Next() {
		var (
			f  file
			at int64
		)
		if err := rows.Scan(&f.ID, &f.OriginalName, &f.FileType, &f.FileSize, &f.ParsedContent, &at); err != nil {
			return nil, err
		}
		f.CreatedAt = formatTime(at)
		f.Metadata = map[string]any{"characters": len(f.ParsedContent)}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (fb *FakeBackend) writeFiles(w http.ResponseWriter, files []file, err error) {
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (fb *FakeBackend) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := fb.queryFiles("ORDER BY id DESC")
	fb.writeFiles(w, files, err)
}

func (fb *FakeBackend) handleSearchFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	files, err := fb.queryFiles("WHERE parsed_content LIKE ? ORDER BY id", "%"+req.Query+"%")
	fb.writeFiles(w, files, err)
}

func (fb *FakeBackend) handleGetFile(w http.ResponseWriter, r *http.Request) {
	files, err := fb.queryFiles("WHERE id = ?", chi.URLParam(r, "id"))
	if err == nil && len(files) == 0 {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, files[0])
}

func (fb *FakeBackend) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	res, err := fb.DB.Exec("DELETE FROM files WHERE id = ?", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "File deleted"})
}

func (fb *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	src, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer src.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusBadRequest, "File too large")
		return
	}
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if !supportedTypes[fileType] {
		writeError(w, http.StatusBadRequest, "Unsupported file type: "+fileType)
		return
	}
	data, err := io.ReadAll(src)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := fb.DB.Exec(
		"INSERT INTO files (original_name, file_type, file_size, parsed_content, created_at) VALUES (?, ?, ?, ?, ?)",
		header.Filename, fileType, len(data), string(data), fb.now().UnixNano(),
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	id, _ := res.LastInsertId()
	files, err := fb.queryFiles("WHERE id = ?", id)
	if err != nil || len(files) == 0 {
		writeError(w, http.StatusInternalServerError, "upload lost")
		return
	}
	f := files[0]
	if desc := r.FormValue("description"); desc != "" {
		f.Metadata["description"] = desc
	}
	writeJSON(w, http.StatusCreated, f)
}
