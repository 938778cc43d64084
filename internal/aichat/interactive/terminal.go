package interactive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/peterh/liner"
)

// TerminalReader reads lines with editing and history.
type TerminalReader struct {
	state       *liner.State
	historyPath string
}

var _ LineReader = (*TerminalReader)(nil)

// NewTerminalReader opens the terminal for line editing. History is loaded
// from historyPath when it is set.
func NewTerminalReader(historyPath string) *TerminalReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	r := &TerminalReader{state: state, historyPath: historyPath}
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = state.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

// Prompt reads a line. Non-empty lines are added to the history.
func (r *TerminalReader) Prompt(prompt string) (string, error) {
	line, err := r.state.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrInterrupted
		}
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", err
	}
	if line != "" {
		r.state.AppendHistory(line)
	}
	return line, nil
}

// Close writes the history and restores the terminal.
func (r *TerminalReader) Close() error {
	var histErr error
	if r.historyPath != "" {
		histErr = r.writeHistory()
	}
	if err := r.state.Close(); err != nil {
		return err
	}
	return histErr
}

func (r *TerminalReader) writeHistory() error {
	if err := os.MkdirAll(filepath.Dir(r.historyPath), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	f, err := os.OpenFile(r.historyPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	defer f.Close()
	if _, err := r.state.WriteHistory(f); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}
