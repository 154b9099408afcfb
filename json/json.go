// Package json converts between the chat backend's JSON payloads and ponder
// domain types.
package json

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fwojciec/ponder"
)

// ErrSchema indicates a payload that is valid JSON but has none of the
// expected fields.
var ErrSchema = errors.New("unexpected payload shape")

// messageDTO is a default-channel payload: a text chunk or an error.
type messageDTO struct {
	Chunk *string `json:"chunk,omitempty"`
	Error *string `json:"error,omitempty"`
}

// Source is one entry of a sources event. Both fields are optional.
type Source struct {
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
}

type endDTO struct {
	ModelUsed string `json:"model_used"`
}

type fileDTO struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	PublicURL string `json:"public_url"`
	Key       string `json:"key"`
}

type filesDTO struct {
	Files []fileDTO `json:"files"`
	Error string    `json:"error,omitempty"`
}

type uploadDTO struct {
	Message     string `json:"message,omitempty"`
	Filename    string `json:"filename,omitempty"`
	S3Key       string `json:"s3_key,omitempty"`
	S3URL       string `json:"s3_url,omitempty"`
	ChunksAdded int    `json:"chunks_added,omitempty"`
	Error       string `json:"error,omitempty"`
}

type statusDTO struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DecodeMessage decodes a default-channel payload into an EventChunk or an
// EventError.
func DecodeMessage(data []byte) (ponder.Event, error) {
	var dto messageDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	switch {
	case dto.Error != nil:
		return ponder.EventError{Message: *dto.Error}, nil
	case dto.Chunk != nil:
		return ponder.EventChunk{Text: *dto.Chunk}, nil
	}
	return nil, fmt.Errorf("decode message: %w", ErrSchema)
}

// DecodeError decodes a named error event payload.
func DecodeError(data []byte) (ponder.EventError, error) {
	var dto messageDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return ponder.EventError{}, fmt.Errorf("decode error: %w", err)
	}
	if dto.Error == nil {
		return ponder.EventError{}, fmt.Errorf("decode error: %w", ErrSchema)
	}
	return ponder.EventError{Message: *dto.Error}, nil
}

// DecodeSources decodes a sources event payload into display citations.
func DecodeSources(data []byte) (ponder.EventSources, error) {
	var dtos []Source
	if err := json.Unmarshal(data, &dtos); err != nil {
		return ponder.EventSources{}, fmt.Errorf("decode sources: %w", err)
	}
	citations := make([]ponder.Citation, len(dtos))
	for i, d := range dtos {
		citations[i] = ponder.NewCitation(d.Filename, d.URL)
	}
	return ponder.EventSources{Citations: citations}, nil
}

// DecodeEnd decodes an end event payload.
func DecodeEnd(data []byte) (ponder.EventEnd, error) {
	var dto endDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return ponder.EventEnd{}, fmt.Errorf("decode end: %w", err)
	}
	return ponder.EventEnd{Model: dto.ModelUsed}, nil
}

// DecodeFiles decodes a file listing. An error field is reported as
// ponder.ErrBackend.
func DecodeFiles(data []byte) ([]ponder.File, error) {
	var dto filesDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	if dto.Error != "" {
		return nil, fmt.Errorf("%s: %w", dto.Error, ponder.ErrBackend)
	}
	files := make([]ponder.File, len(dto.Files))
	for i, f := range dto.Files {
		files[i] = ponder.File{Name: f.Filename, Size: f.Size, URL: f.PublicURL, Key: f.Key}
	}
	return files, nil
}

// DecodeUpload decodes an upload response.
func DecodeUpload(data []byte) (ponder.UploadResult, error) {
	var dto uploadDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return ponder.UploadResult{}, fmt.Errorf("decode upload: %w", err)
	}
	if dto.Error != "" {
		return ponder.UploadResult{}, fmt.Errorf("%s: %w", dto.Error, ponder.ErrBackend)
	}
	return ponder.UploadResult{
		Message:  dto.Message,
		Filename: dto.Filename,
		Key:      dto.S3Key,
		URL:      dto.S3URL,
		Chunks:   dto.ChunksAdded,
	}, nil
}

// DecodeStatus decodes a {message} or {error} response.
func DecodeStatus(data []byte) (string, error) {
	var dto statusDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	if dto.Error != "" {
		return "", fmt.Errorf("%s: %w", dto.Error, ponder.ErrBackend)
	}
	return dto.Message, nil
}
