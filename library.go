package ponder

import (
	"context"
	"io"
)

// File is a document the backend has indexed for retrieval.
type File struct {
	Name string
	Size int64
	URL  string
	Key  string
}

// UploadResult reports a successful document upload.
type UploadResult struct {
	Message  string
	Filename string
	Key      string
	URL      string
	Chunks   int
}

// Library lists and adds documents in the backend's retrieval store.
type Library interface {
	ListFiles(ctx context.Context) ([]File, error)
	Upload(ctx context.Context, name string, r io.Reader) (UploadResult, error)
}

// Resetter clears the backend's conversation history for this client.
type Resetter interface {
	Reset(ctx context.Context) error
}
