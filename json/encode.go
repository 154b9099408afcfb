package json

import (
	"encoding/json"

	"github.com/fwojciec/ponder"
)

// The encoders produce the backend's payloads. They serve the fixture
// server; field values are plain strings and numbers, so marshaling cannot
// fail.

// EncodeChunk returns a default-channel chunk payload.
func EncodeChunk(text string) []byte {
	return mustMarshal(messageDTO{Chunk: &text})
}

// EncodeError returns an error payload.
func EncodeError(message string) []byte {
	return mustMarshal(messageDTO{Error: &message})
}

// EncodeSources returns a sources event payload.
func EncodeSources(sources []Source) []byte {
	if sources == nil {
		sources = []Source{}
	}
	return mustMarshal(sources)
}

// EncodeEnd returns an end event payload.
func EncodeEnd(model string) []byte {
	return mustMarshal(endDTO{ModelUsed: model})
}

// EncodeFiles returns a file listing response.
func EncodeFiles(files []ponder.File) []byte {
	dto := filesDTO{Files: make([]fileDTO, len(files))}
	for i, f := range files {
		dto.Files[i] = fileDTO{Filename: f.Name, Size: f.Size, PublicURL: f.URL, Key: f.Key}
	}
	return mustMarshal(dto)
}

// EncodeUpload returns an upload response.
func EncodeUpload(r ponder.UploadResult) []byte {
	return mustMarshal(uploadDTO{
		Message:     r.Message,
		Filename:    r.Filename,
		S3Key:       r.Key,
		S3URL:       r.URL,
		ChunksAdded: r.Chunks,
	})
}

// EncodeStatus returns a {message} response, or {error} when failure is set.
func EncodeStatus(message string, failure bool) []byte {
	if failure {
		return mustMarshal(statusDTO{Error: message})
	}
	return mustMarshal(statusDTO{Message: message})
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
