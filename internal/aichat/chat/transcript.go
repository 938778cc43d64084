package chat

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/longkey1/aichat/internal/aichat"
	"gopkg.in/yaml.v3"
)

// record is the persisted form of a transcript. Field order is the file order.
type record struct {
	Model        string    `yaml:"model,omitempty"`
	SystemPrompt string    `yaml:"system_prompt"`
	Messages     []Message `yaml:"messages"`
}

// loadRecord tells missing keys apart from empty values.
type loadRecord struct {
	Model        *string    `yaml:"model"`
	SystemPrompt *string    `yaml:"system_prompt"`
	Messages     *[]Message `yaml:"messages"`
}

// Transcript is the conversation state of one chat: a system prompt and an
// ordered message log. It is not safe for concurrent use.
type Transcript struct {
	systemPrompt string
	messages     []Message
	model        string
	out          io.Writer
}

// TranscriptOption configures a Transcript.
type TranscriptOption func(*Transcript)

// WithOutput sets where confirmations and displayed chat data are written.
func WithOutput(w io.Writer) TranscriptOption {
	return func(t *Transcript) {
		t.out = w
	}
}

// NewTranscript returns an empty transcript. Output defaults to os.Stderr.
func NewTranscript(opts ...TranscriptOption) *Transcript {
	t := &Transcript{out: os.Stderr}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddMessage appends m unless its content is blank. It reports whether the
// message was appended.
func (t *Transcript) AddMessage(m Message) bool {
	if m.IsEmpty() {
		return false
	}
	t.messages = append(t.messages, m)
	return true
}

// RemoveLastMessage pops the most recent message.
func (t *Transcript) RemoveLastMessage() (Message, error) {
	if len(t.messages) == 0 {
		return Message{}, ErrEmptyHistory
	}
	last := t.messages[len(t.messages)-1]
	t.messages = t.messages[:len(t.messages)-1]
	return last, nil
}

// Clear empties the message log. The system prompt is kept.
func (t *Transcript) Clear() {
	t.messages = nil
}

// SetSystemPrompt replaces the system prompt verbatim.
func (t *Transcript) SetSystemPrompt(text string) {
	t.systemPrompt = text
}

// SystemPrompt returns the transcript level system prompt.
func (t *Transcript) SystemPrompt() string {
	return t.systemPrompt
}

// Messages returns a copy of the message log.
func (t *Transcript) Messages() []Message {
	return slices.Clone(t.messages)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Last returns the most recent message.
func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// Model returns the model recorded in the last loaded file, if any.
func (t *Transcript) Model() string {
	return t.model
}

// Export writes the transcript to path, replacing any existing content.
// The file is written next to path first and renamed over it.
func (t *Transcript) Export(path, model string, confirm bool) error {
	rec := record{
		Model:        model,
		SystemPrompt: t.systemPrompt,
		Messages:     t.messages,
	}
	if rec.Messages == nil {
		rec.Messages = []Message{}
	}

	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to serialize chat: %w", err)
	}

	if err := writeFileAtomic(path, data, 0644); err != nil {
		return err
	}
	if model != "" {
		t.model = model
	}

	if confirm {
		fmt.Fprintf(t.out, "Successfully exported messages to %s\n", path)
	}
	return nil
}

// Load replaces the system prompt and messages with the content of path.
// An empty or null document is a valid empty transcript. Nothing is changed
// when an error is returned.
func (t *Transcript) Load(path string, display bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to read chat file: %w", err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}

	t.systemPrompt = rec.SystemPrompt
	t.messages = rec.Messages
	t.model = rec.Model

	if display {
		t.Display()
	}
	return nil
}

// Display writes the system prompt and every message to the output.
func (t *Transcript) Display() {
	fmt.Fprintf(t.out, "System prompt: %s\n\n", t.systemPrompt)
	for _, m := range t.messages {
		fmt.Fprintf(t.out, "%s: %s\n", m.Role, m.Content)
	}
	fmt.Fprintln(t.out)
}

// RenderPayload builds the request body for the transcript. It returns nil
// when there are no messages.
//
// Assistant messages are sent with the "model" role. System role messages,
// found in files written by older versions, are merged into the system
// instruction after the transcript system prompt instead of being sent as
// turns.
func (t *Transcript) RenderPayload() *aichat.Payload {
	if len(t.messages) == 0 {
		return nil
	}

	var system []aichat.Part
	if t.systemPrompt != "" {
		system = append(system, aichat.Part{Text: t.systemPrompt})
	}

	contents := make([]aichat.Content, 0, len(t.messages))
	for _, m := range t.messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, aichat.Part{Text: m.Content})
		case RoleAssistant:
			contents = append(contents, aichat.Content{Role: "model", Parts: []aichat.Part{{Text: m.Content}}})
		default:
			contents = append(contents, aichat.Content{Role: m.Role, Parts: []aichat.Part{{Text: m.Content}}})
		}
	}

	payload := &aichat.Payload{Contents: contents}
	if len(system) > 0 {
		payload.SystemInstruction = &aichat.SystemInstruction{Parts: system}
	}
	return payload
}

func decodeRecord(data []byte) (record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return record{}, err
	}
	if len(doc.Content) == 0 {
		return record{}, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return record{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return record{}, errors.New("document is not a mapping")
	}

	var lr loadRecord
	if err := root.Decode(&lr); err != nil {
		return record{}, err
	}
	if lr.SystemPrompt == nil {
		return record{}, errors.New("missing key system_prompt")
	}
	if lr.Messages == nil {
		return record{}, errors.New("missing key messages")
	}

	// Hand edited files go through the same normalization as new messages.
	rec := record{SystemPrompt: *lr.SystemPrompt}
	for _, m := range *lr.Messages {
		if m = NewMessage(m.Role, m.Content); !m.IsEmpty() {
			rec.Messages = append(rec.Messages, m)
		}
	}
	if lr.Model != nil {
		rec.Model = *lr.Model
	}
	return rec, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary chat file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write chat file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write chat file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write chat file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to write chat file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace chat file: %w", err)
	}
	return nil
}
