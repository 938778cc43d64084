// Package aichat provides the core abstractions shared by the chat transcript
// and the model sources.
// This package defines the Model interface that every source implementation
// (gemini, ollama) must implement, and the request payload the transcript
// renders for them.
package aichat

import (
	"context"
	"fmt"
	"strings"
)

// ModelInfo represents information about an available model from a source.
type ModelInfo struct {
	ID          string // Model identifier (e.g., "gemini-2.0-flash", "llama3.2")
	Description string // Human-readable description of the model
	IsDefault   bool   // Whether this is the configured default model
}

// Model defines the capability every model source exposes.
//
// Example usage:
//
//	model := gemini.NewModel("gemini-2.0-flash", cfg)
//	payload := transcript.RenderPayload()
//	reply, err := model.Invoke(ctx, payload)
type Model interface {
	// Name returns the model name as known by its source.
	Name() string

	// Invoke sends the payload and returns the whole completion text.
	Invoke(ctx context.Context, payload *Payload) (string, error)

	// Stream sends the payload and returns the completion as a pull-based
	// sequence of text chunks. The caller must Close the stream.
	Stream(ctx context.Context, payload *Payload) (Stream, error)
}

// Stream is a finite, forward-only sequence of completion fragments.
// It is not restartable.
//
//	for s.Next() {
//		fmt.Print(s.Chunk())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream interface {
	// Next advances to the next fragment. It returns false at the end of
	// the stream or on error.
	Next() bool

	// Chunk returns the text of the current fragment. Fragments without
	// text yield "".
	Chunk() string

	// Err returns the first error met while reading the stream.
	Err() error

	// Close releases the underlying connection.
	Close() error
}

// ParseModelString parses a model string in "source:model" format.
// Returns (source, model, error).
//
// Example:
//
//	source, model, err := ParseModelString("ollama:llama3.2:1b")
//	// source = "ollama", model = "llama3.2:1b"
func ParseModelString(modelStr string) (string, string, error) {
	parts := strings.SplitN(modelStr, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid model format: %s (expected format: source:model, e.g., gemini:gemini-2.0-flash)", modelStr)
	}

	source := strings.TrimSpace(parts[0])
	model := strings.TrimSpace(parts[1])

	if source == "" || model == "" {
		return "", "", fmt.Errorf("source and model cannot be empty")
	}

	return source, model, nil
}

// FormatModelString formats source and model into "source:model" format.
func FormatModelString(source, model string) string {
	return fmt.Sprintf("%s:%s", source, model)
}
