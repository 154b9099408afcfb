// Package http implements [ponder.Client], [ponder.Library] and
// [ponder.Resetter] against the chat backend's HTTP API.
//
// Chat responses arrive as server-sent events on GET /chat. The backend
// keeps conversation history in a cookie session, so the client carries a
// cookie jar across calls.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fwojciec/ponder"
	"github.com/fwojciec/ponder/json"
)

// Backend paths.
const (
	chatPath       = "/chat"
	listFilesPath  = "/list_files"
	uploadFilePath = "/upload_file"
	newSessionPath = "/new_session"
)

// Interface compliance checks.
var (
	_ ponder.Client   = (*Client)(nil)
	_ ponder.Library  = (*Client)(nil)
	_ ponder.Resetter = (*Client)(nil)
)

// Client talks to one backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The client should keep a cookie
// jar for reset to apply to the chat history.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a [Client] for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil) // never fails without options
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Jar: jar},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open starts a chat response stream for req. Failures to connect or a
// non-OK status wrap ponder.ErrOpen.
func (c *Client) Open(ctx context.Context, req ponder.Request) (ponder.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	q := url.Values{}
	q.Set("message", req.Message)
	q.Set("use_reasoning", strconv.FormatBool(req.Reasoning))

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+chatPath+"?"+q.Encode(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("http: %w: %w", ponder.ErrOpen, err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("http: %w: %w", ponder.ErrOpen, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer resp.Body.Close()
		return nil, fmt.Errorf("http: %w: %w", ponder.ErrOpen, parseHTTPError(resp))
	}
	c.logger.Debug("chat stream opened", "reasoning", req.Reasoning)
	return newStream(ctx, cancel, resp.Body, c.logger), nil
}

// ListFiles returns the documents in the backend's store.
func (c *Client) ListFiles(ctx context.Context) ([]ponder.File, error) {
	body, status, err := c.do(ctx, http.MethodGet, listFilesPath, nil, "")
	if err != nil {
		return nil, err
	}
	files, err := json.DecodeFiles(body)
	if err != nil {
		return nil, statusError(status, err)
	}
	return files, nil
}

// Upload sends a document as multipart form field "file".
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (ponder.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return ponder.UploadResult{}, fmt.Errorf("http: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return ponder.UploadResult{}, fmt.Errorf("http: read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return ponder.UploadResult{}, fmt.Errorf("http: %w", err)
	}

	body, status, err := c.do(ctx, http.MethodPost, uploadFilePath, &buf, mw.FormDataContentType())
	if err != nil {
		return ponder.UploadResult{}, err
	}
	res, err := json.DecodeUpload(body)
	if err != nil {
		return ponder.UploadResult{}, statusError(status, err)
	}
	return res, nil
}

// Reset starts a new conversation on the backend.
func (c *Client) Reset(ctx context.Context) error {
	body, status, err := c.do(ctx, http.MethodPost, newSessionPath, nil, "")
	if err != nil {
		return err
	}
	msg, err := json.DecodeStatus(body)
	if err != nil {
		return statusError(status, err)
	}
	c.logger.Debug("backend session reset", "message", msg)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("http: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("http: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	return data, resp.StatusCode, nil
}

// statusError prefers the decoded backend error; a body that did not decode
// is reported with its status code.
func statusError(status int, err error) error {
	if status >= 200 && status < 300 {
		return fmt.Errorf("http: %w", err)
	}
	return fmt.Errorf("http: HTTP %d: %w", status, err)
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	if _, err := json.DecodeStatus(body); errors.Is(err, ponder.ErrBackend) {
		return fmt.Errorf("HTTP %d: %w", resp.StatusCode, err)
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
