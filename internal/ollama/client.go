package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/longkey1/aichat/internal/aichat"
	"go.uber.org/zap"
)

const (
	SourceName     = "ollama"
	DefaultBaseURL = "http://localhost:11434"
)

var errNoMessage = errors.New("response has no message")

// Config holds what an Ollama model needs to reach the server.
type Config struct {
	BaseURL string
	Timeout time.Duration // 0 disables the timeout
	Logger  *zap.Logger   // Defaults to zap.L()

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Model implements aichat.Model for the Ollama chat API.
type Model struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ aichat.Model = (*Model)(nil)

// NewModel creates an Ollama model client.
func NewModel(name string, cfg Config) *Model {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}
	return &Model{
		name:       name,
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger.With(zap.String("source", SourceName), zap.String("model", name)),
	}
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// Invoke sends a non-streaming chat request and returns the message content.
func (m *Model) Invoke(ctx context.Context, payload *aichat.Payload) (string, error) {
	resp, err := m.chat(ctx, "invoke", payload, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", m.fail("invoke", resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	if result.Error != "" {
		return "", m.fail("invoke", resp.StatusCode, errors.New(result.Error))
	}
	if result.Message == nil {
		return "", m.fail("invoke", resp.StatusCode, errNoMessage)
	}
	return result.Message.Content, nil
}

// Stream sends a streaming chat request. The response is newline delimited JSON.
func (m *Model) Stream(ctx context.Context, payload *aichat.Payload) (aichat.Stream, error) {
	resp, err := m.chat(ctx, "stream", payload, true)
	if err != nil {
		return nil, err
	}
	return newLineStream(resp.Body, m), nil
}

// ListModels retrieves all installed models from /api/tags.
func (m *Model) ListModels(ctx context.Context) ([]aichat.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, m.fail("list", 0, fmt.Errorf("ollama is not running: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, m.fail("list", resp.StatusCode, bodyError(resp.Body))
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, m.fail("list", resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	models := make([]aichat.ModelInfo, 0, len(result.Models))
	for _, md := range result.Models {
		var desc []string
		for _, s := range []string{md.Details.Family, md.Details.ParameterSize, md.Details.QuantizationLevel} {
			if s != "" {
				desc = append(desc, s)
			}
		}
		models = append(models, aichat.ModelInfo{ID: md.Name, Description: strings.Join(desc, " ")})
	}
	return models, nil
}

// Verify checks that the model is installed with /api/show.
func (m *Model) Verify(ctx context.Context) error {
	body, err := json.Marshal(ShowModelRequest{Name: m.name})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/show", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return m.fail("verify", 0, fmt.Errorf("ollama is not running: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return m.fail("verify", resp.StatusCode, bodyError(resp.Body))
	}
	return nil
}

func (m *Model) chat(ctx context.Context, op string, payload *aichat.Payload, stream bool) (*http.Response, error) {
	if payload == nil {
		return nil, m.fail(op, 0, aichat.ErrEmptyPayload)
	}

	body, err := json.Marshal(m.request(payload, stream))
	if err != nil {
		return nil, m.fail(op, 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, m.fail(op, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	m.logger.Debug("ollama request", zap.String("op", op), zap.Int("bytes", len(body)))

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, m.fail(op, 0, fmt.Errorf("ollama is not running: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, m.fail(op, resp.StatusCode, bodyError(resp.Body))
	}
	return resp, nil
}

// request translates payload into an /api/chat body.
func (m *Model) request(payload *aichat.Payload, stream bool) ChatRequest {
	messages := make([]Message, 0, len(payload.Contents)+1)
	if system := payload.SystemText(); system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	for _, c := range payload.Contents {
		role := c.Role
		if role == "model" {
			role = "assistant"
		}
		texts := make([]string, 0, len(c.Parts))
		for _, p := range c.Parts {
			texts = append(texts, p.Text)
		}
		messages = append(messages, Message{Role: role, Content: strings.Join(texts, "")})
	}

	req := ChatRequest{Model: m.name, Messages: messages, Stream: stream}
	if gc := payload.GenerationConfig; gc != nil {
		req.Options = &Options{
			Temperature: gc.Temperature,
			TopK:        gc.TopK,
			TopP:        gc.TopP,
			NumPredict:  gc.MaxOutputTokens,
		}
	}
	return req
}

func (m *Model) fail(op string, status int, err error) error {
	return &aichat.InvocationError{Model: m.name, Op: op, Status: status, Err: err}
}

// bodyError reads an {"error": "..."} body, falling back to the raw text.
func bodyError(r io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(r, 64*1024))
	var resp ChatResponse
	if err := json.Unmarshal(data, &resp); err == nil && resp.Error != "" {
		return errors.New(resp.Error)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return errors.New("request failed")
	}
	return errors.New(text)
}
