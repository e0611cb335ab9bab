package backend

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/iksnae/chatline/internal"
)

// MaxUploadSize is the largest file the backend accepts
const MaxUploadSize = 10 * 1024 * 1024

// SupportedFileTypes are the extensions the backend can parse
var SupportedFileTypes = []string{"pdf", "docx", "csv", "txt"}

func filePath(id int, suffix string) string {
	return "/file/" + strconv.Itoa(id) + "/" + suffix
}

// ListFiles returns every parsed file
func (c *Client) ListFiles(ctx context.Context) ([]internal.ParsedFile, error) {
	var out []wireFile
	if err := c.callJSON(ctx, "list files", http.MethodGet, "/file/", nil, &out); err != nil {
		return nil, err
	}
	return toParsedFiles(out), nil
}

// GetFile returns one parsed file
func (c *Client) GetFile(ctx context.Context, id int) (*internal.ParsedFile, error) {
	var out wireFile
	if err := c.callJSON(ctx, "get file", http.MethodGet, filePath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	pf := out.parsedFile()
	return &pf, nil
}

// DeleteFile deletes a parsed file
func (c *Client) DeleteFile(ctx context.Context, id int) error {
	return c.callJSON(ctx, "delete file", http.MethodDelete, filePath(id, "delete/"), nil, nil)
}

// SearchFiles returns the files whose parsed content contains query
func (c *Client) SearchFiles(ctx context.Context, query string) ([]internal.ParsedFile, error) {
	var out []wireFile
	body := map[string]string{"query": query}
	if err := c.callJSON(ctx, "search files", http.MethodPost, "/file/search/", body, &out); err != nil {
		return nil, err
	}
	return toParsedFiles(out), nil
}

// UploadFile uploads a local file for server-side parsing
func (c *Client) UploadFile(ctx context.Context, path, description string) (*internal.ParsedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxUploadSize {
		return nil, fmt.Errorf("%s is larger than the %d byte upload limit", path, MaxUploadSize)
	}

	// The multipart body is produced while the request is being sent.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil && description != "" {
			err = mw.WriteField("description", description)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/file/upload/", pr)
	if err != nil {
		_ = pr.Close()
		return nil, &internal.TransportError{Op: "upload file", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(c.stream, "upload file", req)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out wireFile
	if err := decodeBody(resp, &out); err != nil {
		return nil, &internal.TransportError{Op: "upload file", Status: resp.StatusCode, Err: err}
	}
	pf := out.parsedFile()
	return &pf, nil
}

func toParsedFiles(in []wireFile) []internal.ParsedFile {
	out := make([]internal.ParsedFile, 0, len(in))
	for _, wf := range in {
		out = append(out, wf.parsedFile())
	}
	return out
}
