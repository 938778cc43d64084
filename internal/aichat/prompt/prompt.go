// Package prompt loads TOML prompt templates from the configured prompt
// directories.
package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const ext = ".toml"

// ErrNotFound is returned when no prompt directory holds the named prompt.
var ErrNotFound = errors.New("prompt not found")

// Prompt represents the structure of a TOML prompt file
type Prompt struct {
	System string  `toml:"system"`
	User   string  `toml:"user"`
	Model  *string `toml:"model,omitempty"` // Saved model name to use instead of the default
}

// Entry is a prompt found while listing the prompt directories.
type Entry struct {
	Name string // Relative path without extension, slash separated
	Dir  string // Prompt directory the file was found in
}

// LoadPrompt loads a prompt file and returns its contents
func LoadPrompt(filePath string) (*Prompt, error) {
	var prompt Prompt
	if _, err := toml.DecodeFile(filePath, &prompt); err != nil {
		return nil, fmt.Errorf("error decoding prompt file: %w", err)
	}
	return &prompt, nil
}

// Find returns the path of the named prompt. Later directories take
// precedence over earlier ones.
func Find(name string, dirs []string) (string, error) {
	file := name
	if !strings.HasSuffix(file, ext) {
		file += ext
	}

	var found string
	for _, dir := range dirs {
		candidate := filepath.Join(dir, filepath.FromSlash(file))
		if _, err := os.Stat(candidate); err == nil {
			found = candidate
		}
	}

	if found == "" {
		return "", fmt.Errorf("%w: '%s' in any of the prompt directories: %v", ErrNotFound, file, dirs)
	}
	return found, nil
}

// List walks every prompt directory and returns the prompts sorted by name.
// A name present in several directories is reported once, with the directory
// that Find would pick. Missing directories are skipped.
func List(dirs []string) ([]Entry, error) {
	byName := make(map[string]string)

	for _, dir := range dirs {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
				return nil
			}

			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}
			byName[filepath.ToSlash(strings.TrimSuffix(rel, ext))] = dir
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking prompt directory %s: %w", dir, err)
		}
	}

	entries := make([]Entry, 0, len(byName))
	for name, dir := range byName {
		entries = append(entries, Entry{Name: name, Dir: dir})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
