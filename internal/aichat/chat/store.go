package chat

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultChatName is used when no chat is named and none exists yet.
const DefaultChatName = "chat"

const chatExt = ".yaml"

// Info describes a stored chat for listings.
type Info struct {
	Name     string
	Model    string // Empty for chats never exported with a model
	LastUsed time.Time
	Messages int
	Err      error // Set when the file could not be parsed
}

// Store keeps one transcript file per chat name in a directory.
// Concurrent processes using the same chat file are not coordinated.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding the chat files.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for the chat name.
func (s *Store) Path(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+chatExt), nil
}

// Exists reports whether a chat file exists for name.
func (s *Store) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Select resolves the chat to open.
// With a name, the chat file is created empty when missing. Without a name,
// the most recently used chat is selected, or DefaultChatName is created
// when the store is empty. It returns the chat name and whether it was created.
func (s *Store) Select(name string) (string, bool, error) {
	if err := s.ensureDir(); err != nil {
		return "", false, err
	}

	if name == "" {
		chats, err := s.List()
		if err != nil {
			return "", false, err
		}
		if len(chats) > 0 {
			return chats[0].Name, false, nil
		}
		name = DefaultChatName
	}

	path, err := s.Path(name)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(path); err == nil {
		return name, false, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return name, false, nil
		}
		return "", false, fmt.Errorf("failed to create chat file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", false, fmt.Errorf("failed to create chat file: %w", err)
	}
	return name, true, nil
}

// Open loads the named chat into a new transcript.
func (s *Store) Open(name string, opts ...TranscriptOption) (*Transcript, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	t := NewTranscript(opts...)
	if err := t.Load(path, false); err != nil {
		return nil, err
	}
	return t, nil
}

// Save exports the transcript under name.
func (s *Store) Save(name string, t *Transcript, model string, confirm bool) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	return t.Export(path, model, confirm)
}

// SetSystemPrompt replaces the system prompt of an existing chat.
func (s *Store) SetSystemPrompt(name, prompt string) error {
	t, err := s.Open(name)
	if err != nil {
		return err
	}
	t.SetSystemPrompt(prompt)
	return s.Save(name, t, t.Model(), false)
}

// Delete removes the chat file for name.
func (s *Store) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: chat %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete chat file: %w", err)
	}
	return nil
}

// List returns every stored chat sorted by last use (newest first).
// Unreadable chats are listed with Err set.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read chat directory: %w", err)
	}

	var chats []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), chatExt) || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			continue
		}

		info := Info{
			Name:     strings.TrimSuffix(entry.Name(), chatExt),
			LastUsed: fi.ModTime(),
		}
		t := NewTranscript()
		if err := t.Load(filepath.Join(s.dir, entry.Name()), false); err != nil {
			info.Err = err
		} else {
			info.Model = t.Model()
			info.Messages = t.Len()
		}
		chats = append(chats, info)
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastUsed.After(chats[j].LastUsed)
	})

	return chats, nil
}

func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create chat directory: %w", err)
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
