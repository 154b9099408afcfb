// Package gin implements a scripted stand-in for the chat backend on the gin
// web framework. It speaks the same HTTP API as the real backend: streamed
// chat answers, the document listing, uploads and session reset.
package gin

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/ponder"
	"github.com/fwojciec/ponder/fs"
	"github.com/fwojciec/ponder/json"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionCookie = "session"

// Server is a fixture backend.
type Server struct {
	script Script
	logger *slog.Logger
	newID  func() string
	engine *gin.Engine

	mu      sync.Mutex
	files   []ponder.File
	history map[string]int
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithIDFunc sets the session id generator.
func WithIDFunc(newID func() string) Option {
	return func(s *Server) { s.newID = newID }
}

// New creates a [Server] playing script.
func New(script Script, opts ...Option) *Server {
	s := &Server{
		script:  script,
		logger:  slog.New(slog.DiscardHandler),
		newID:   uuid.NewString,
		history: make(map[string]int),
	}
	for _, o := range opts {
		o(s)
	}
	for _, f := range script.Files {
		s.files = append(s.files, s.file(f.Name, f.Size))
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	r.GET("/chat", s.chat)
	r.GET("/list_files", s.listFiles)
	r.POST("/upload_file", s.uploadFile)
	r.POST("/new_session", s.newSession)
	s.engine = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// SessionTurns returns the completed exchanges per backend session.
func (s *Server) SessionTurns() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.history))
	for k, v := range s.history {
		out[k] = v
	}
	return out
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// session returns the caller's session id, issuing a new one when the
// cookie is missing or unknown.
func (s *Server) session(c *gin.Context) string {
	id, err := c.Cookie(sessionCookie)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		if _, ok := s.history[id]; ok {
			return id
		}
	}
	return s.issueLocked(c)
}

func (s *Server) issueLocked(c *gin.Context) string {
	id := s.newID()
	s.history[id] = 0
	c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	return id
}

func (s *Server) chat(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	id := s.session(c)
	message := strings.TrimSpace(c.Query("message"))
	reasoning := strings.EqualFold(c.Query("use_reasoning"), "true")

	switch {
	case s.script.Unavailable:
		s.event(c, "error", json.EncodeError("Chatbot backend (vector store) not ready"))
		s.event(c, "end", []byte("{}"))
		return
	case message == "":
		s.event(c, "error", json.EncodeError("No message provided"))
		s.event(c, "end", []byte("{}"))
		return
	}

	reply := s.script.match(message)
	model := s.script.model(reasoning)
	s.logger.Debug("chat", "session", id, "reasoning", reasoning, "model", model)

	ctx := c.Request.Context()
	send := func(name string, payload []byte) bool {
		if err := s.wait(ctx); err != nil {
			return false
		}
		s.event(c, name, payload)
		return true
	}

	if len(reply.Sources) > 0 {
		sources := make([]json.Source, len(reply.Sources))
		for i, src := range reply.Sources {
			sources[i] = json.Source{Filename: src.Filename, URL: src.URL}
		}
		if !send("sources", json.EncodeSources(sources)) {
			return
		}
	}
	for _, text := range reply.frames(reasoning) {
		if !send("message", json.EncodeChunk(text)) {
			return
		}
	}
	for _, raw := range reply.Raw {
		if err := s.wait(ctx); err != nil {
			return
		}
		_, _ = c.Writer.WriteString(raw)
		c.Writer.Flush()
	}
	if reply.Drop {
		return
	}
	if reply.Error != "" {
		s.event(c, "error", json.EncodeError(reply.Error))
	} else {
		s.mu.Lock()
		if _, ok := s.history[id]; ok {
			s.history[id]++
		}
		s.mu.Unlock()
	}
	s.event(c, "end", json.EncodeEnd(model))
}

// frames lists the chunk texts of a reply. Reasoning is wrapped in think
// tags and only sent when the caller asked for it.
func (r Reply) frames(reasoning bool) []string {
	var out []string
	if reasoning && len(r.Reasoning) > 0 {
		out = append(out, ponder.ThinkStart)
		out = append(out, r.Reasoning...)
		out = append(out, ponder.ThinkEnd+"\n\n")
	}
	return append(out, r.Chunks...)
}

func (s *Server) event(c *gin.Context, name string, payload []byte) {
	c.SSEvent(name, string(payload))
	c.Writer.Flush()
}

func (s *Server) wait(ctx context.Context) error {
	if s.script.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.script.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Server) listFiles(c *gin.Context) {
	if s.script.Unavailable {
		c.Data(http.StatusServiceUnavailable, "application/json", json.EncodeStatus("S3 service not available", true))
		return
	}
	s.mu.Lock()
	files := slices.Clone(s.files)
	s.mu.Unlock()
	c.Data(http.StatusOK, "application/json", json.EncodeFiles(files))
}

func (s *Server) uploadFile(c *gin.Context) {
	if s.script.Unavailable {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "S3 service not available for upload"})
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part in the request"})
		return
	}
	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == "/" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}
	if !slices.Contains(fs.Extensions, strings.ToLower(filepath.Ext(name))) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed. Allowed: " + strings.Join(fs.Extensions, ", ")})
		return
	}
	if header.Size > fs.DefaultMaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	f := s.file(name, header.Size)
	s.mu.Lock()
	s.files = slices.DeleteFunc(s.files, func(existing ponder.File) bool { return existing.Key == f.Key })
	s.files = append(s.files, f)
	s.mu.Unlock()

	c.Data(http.StatusCreated, "application/json", json.EncodeUpload(ponder.UploadResult{
		Message:  "File '" + name + "' uploaded and processed successfully.",
		Filename: name,
		Key:      f.Key,
		URL:      f.URL,
		Chunks:   int(header.Size/1000) + 1,
	}))
}

func (s *Server) newSession(c *gin.Context) {
	s.mu.Lock()
	if id, err := c.Cookie(sessionCookie); err == nil {
		delete(s.history, id)
	}
	s.issueLocked(c)
	s.mu.Unlock()
	c.Data(http.StatusOK, "application/json", json.EncodeStatus("Chat history cleared, new session started.", false))
}

func (s *Server) file(name string, size int64) ponder.File {
	base := s.script.FileBaseURL
	if base == "" {
		base = "https://example.com/docs/"
	}
	return ponder.File{Name: name, Size: size, URL: strings.TrimRight(base, "/") + "/" + name, Key: name}
}
