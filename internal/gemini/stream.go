package gemini

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const maxEventSize = 1024 * 1024

// sseStream reads a streamGenerateContent?alt=sse body.
// Every "data: " line holds one GeminiResponse.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	model   *Model
	chunk   string
	err     error
	done    bool
	events  int
}

func newSSEStream(body io.ReadCloser, m *Model) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &sseStream{body: body, scanner: scanner, model: m}
}

func (s *sseStream) Next() bool {
	if s.done {
		return false
	}

	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			continue
		}

		var event GeminiResponse
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			s.finish(s.model.fail("stream", 0, fmt.Errorf("error parsing stream event: %w", err)))
			return false
		}

		// Events without text still count as a fragment.
		s.chunk, _ = event.text()
		s.events++
		return true
	}

	if err := s.scanner.Err(); err != nil {
		s.finish(s.model.fail("stream", 0, fmt.Errorf("error reading stream: %w", err)))
		return false
	}
	s.finish(nil)
	return false
}

func (s *sseStream) Chunk() string {
	return s.chunk
}

func (s *sseStream) Err() error {
	return s.err
}

func (s *sseStream) Close() error {
	s.done = true
	return s.body.Close()
}

func (s *sseStream) finish(err error) {
	s.done = true
	s.chunk = ""
	s.err = err
	s.model.logger.Debug("gemini stream finished", zap.Int("events", s.events), zap.Error(err))
}
