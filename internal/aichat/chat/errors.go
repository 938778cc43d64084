package chat

import "errors"

var (
	// ErrNotFound is returned when a transcript or system prompt file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidFormat is returned when a transcript file cannot be parsed
	// into a chat record.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrEmptyHistory is returned when removing a message from an empty transcript.
	ErrEmptyHistory = errors.New("no messages in chat history")

	// ErrInvalidName is returned for chat names that cannot be used as file names.
	ErrInvalidName = errors.New("invalid chat name")
)
