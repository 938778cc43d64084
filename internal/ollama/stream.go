package ollama

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// lineStream reads a streaming /api/chat body, one JSON object per line.
type lineStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	model  *Model
	chunk  string
	err    error
	done   bool
}

func newLineStream(body io.ReadCloser, m *Model) *lineStream {
	return &lineStream{body: body, reader: bufio.NewReader(body), model: m}
}

func (s *lineStream) Next() bool {
	for !s.done {
		line, err := s.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			s.finish(s.model.fail("stream", 0, fmt.Errorf("error reading stream: %w", err)))
			return false
		}
		eof := err != nil

		line = strings.TrimSpace(line)
		if line == "" {
			if eof {
				s.finish(nil)
			}
			continue
		}

		var resp ChatResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			s.finish(s.model.fail("stream", 0, fmt.Errorf("error parsing stream line: %w", err)))
			return false
		}
		if resp.Error != "" {
			s.finish(s.model.fail("stream", 0, errors.New(resp.Error)))
			return false
		}

		if resp.Done || eof {
			s.done = true
		}
		s.chunk = ""
		if resp.Message != nil {
			s.chunk = resp.Message.Content
		}
		return true
	}
	return false
}

func (s *lineStream) Chunk() string {
	return s.chunk
}

func (s *lineStream) Err() error {
	return s.err
}

func (s *lineStream) Close() error {
	s.done = true
	return s.body.Close()
}

func (s *lineStream) finish(err error) {
	s.done = true
	s.chunk = ""
	s.err = err
}
