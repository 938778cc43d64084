package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/longkey1/aichat/internal/aichat"
	"go.uber.org/zap"
)

const (
	SourceName     = "gemini"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
)

var errNoText = errors.New("no response from API")

// ModelsAPIResponse represents the response from Gemini's models endpoint
type ModelsAPIResponse struct {
	Models []GeminiModelData `json:"models"`
}

// GeminiModelData represents a single model in the API response
type GeminiModelData struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	Description                string   `json:"description"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// GeminiResponse represents a generateContent response, or one event of a
// streamGenerateContent response
type GeminiResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
}

// GeminiCandidate represents a candidate response
type GeminiCandidate struct {
	Content GeminiResponseContent `json:"content"`
}

// GeminiResponseContent represents the content of a response
type GeminiResponseContent struct {
	Parts []GeminiResponsePart `json:"parts"`
}

// GeminiResponsePart represents a part of the response content
type GeminiResponsePart struct {
	Text *string `json:"text"`
}

// text returns candidates[0].content.parts[0].text.
func (r *GeminiResponse) text() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	t := r.Candidates[0].Content.Parts[0].Text
	if t == nil {
		return "", false
	}
	return *t, true
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Config holds what a Gemini model needs to reach the API.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // 0 disables the timeout
	Logger  *zap.Logger   // Defaults to zap.L()

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Model implements aichat.Model for the Gemini REST API
type Model struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

var _ aichat.Model = (*Model)(nil)

// NewModel creates a Gemini model client.
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
		name:    name,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  client,
		logger:  logger.With(zap.String("source", SourceName), zap.String("model", name)),
	}
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// Invoke sends the payload to generateContent and returns the text of the
// first part of the first candidate.
func (m *Model) Invoke(ctx context.Context, payload *aichat.Payload) (string, error) {
	resp, err := m.post(ctx, "invoke", "generateContent", nil, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", m.fail("invoke", resp.StatusCode, fmt.Errorf("error reading response: %w", err))
	}

	m.logger.Debug("gemini response", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))

	var result GeminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", m.fail("invoke", resp.StatusCode, fmt.Errorf("error parsing response: %w", err))
	}

	text, ok := result.text()
	if !ok {
		return "", m.fail("invoke", resp.StatusCode, errNoText)
	}
	return text, nil
}

// Stream sends the payload to streamGenerateContent with server-sent events.
func (m *Model) Stream(ctx context.Context, payload *aichat.Payload) (aichat.Stream, error) {
	resp, err := m.post(ctx, "stream", "streamGenerateContent", url.Values{"alt": {"sse"}}, payload)
	if err != nil {
		return nil, err
	}
	return newSSEStream(resp.Body, m), nil
}

// ListModels returns the models that support generateContent, sorted by ID
// in descending order.
func (m *Model) ListModels(ctx context.Context) ([]aichat.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint("", nil), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, m.fail("list", 0, fmt.Errorf("failed to connect to API: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, m.fail("list", resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, m.fail("list", resp.StatusCode, apiErrorFrom(body))
	}

	var result ModelsAPIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, m.fail("list", resp.StatusCode, fmt.Errorf("failed to parse API response: %w", err))
	}

	models := make([]aichat.ModelInfo, 0, len(result.Models))
	for _, model := range result.Models {
		if !slices.Contains(model.SupportedGenerationMethods, "generateContent") {
			continue
		}

		description := model.Description
		if description == "" {
			description = model.DisplayName
		}

		id := strings.TrimPrefix(model.Name, "models/")
		models = append(models, aichat.ModelInfo{
			ID:          id,
			Description: description,
			IsDefault:   id == DefaultModel,
		})
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].ID > models[j].ID
	})

	return models, nil
}

// Verify checks that the API knows the model.
func (m *Model) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint("/"+url.PathEscape(m.name), nil), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return m.fail("verify", 0, fmt.Errorf("failed to connect to API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return m.fail("verify", resp.StatusCode, apiErrorFrom(body))
	}
	return nil
}

func (m *Model) post(ctx context.Context, op, method string, query url.Values, payload *aichat.Payload) (*http.Response, error) {
	if payload == nil {
		return nil, m.fail(op, 0, aichat.ErrEmptyPayload)
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, m.fail(op, 0, fmt.Errorf("error marshaling request: %w", err))
	}

	endpoint := m.endpoint("/"+url.PathEscape(m.name)+":"+method, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, m.fail(op, 0, fmt.Errorf("error creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	m.logger.Debug("gemini request",
		zap.String("op", op),
		zap.Int("contents", len(payload.Contents)),
		zap.Int("bytes", len(jsonData)))

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, m.fail(op, 0, fmt.Errorf("error sending request: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, m.fail(op, resp.StatusCode, apiErrorFrom(body))
	}
	return resp, nil
}

// endpoint builds {base}/models{path}?key=...; the key never reaches the logs.
func (m *Model) endpoint(path string, query url.Values) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if m.apiKey != "" {
		q.Set("key", m.apiKey)
	}
	u := m.baseURL + "/models" + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (m *Model) fail(op string, status int, err error) error {
	return &aichat.InvocationError{Model: m.name, Op: op, Status: status, Err: err}
}

// apiErrorFrom extracts error.message from an API error body, falling back to
// the raw body.
func apiErrorFrom(body []byte) error {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error.Message != "" {
		return fmt.Errorf("API error: %s", ae.Error.Message)
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return errors.New("API error")
	}
	return fmt.Errorf("API error: %s", text)
}
