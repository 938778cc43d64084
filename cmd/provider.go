package cmd

import (
	"context"
	"fmt"

	"github.com/longkey1/aichat/internal/aichat"
	"github.com/longkey1/aichat/internal/aichat/config"
	"github.com/longkey1/aichat/internal/gemini"
	"github.com/longkey1/aichat/internal/ollama"
)

// sourceModel is a model client that can also query its source.
type sourceModel interface {
	aichat.Model
	ListModels(ctx context.Context) ([]aichat.ModelInfo, error)
	Verify(ctx context.Context) error
}

// newModel creates the client for a saved model based on its source
func newModel(cfg *config.Config, m config.Model) (sourceModel, error) {
	baseURL, err := cfg.GetBaseURL(m.Source)
	if err != nil {
		return nil, err
	}

	switch m.Source {
	case gemini.SourceName:
		token, err := cfg.GetToken(m.Source)
		if err != nil {
			return nil, err
		}
		return gemini.NewModel(m.Name, gemini.Config{
			BaseURL: baseURL,
			APIKey:  token,
			Timeout: cfg.Timeout(),
			Logger:  logger,
		}), nil
	case ollama.SourceName:
		return ollama.NewModel(m.Name, ollama.Config{
			BaseURL: baseURL,
			Timeout: cfg.Timeout(),
			Logger:  logger,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownSource, m.Source)
	}
}

// resolveModel picks the saved model to use, by name or the default.
func resolveModel(cfg *config.Config, name string) (config.Model, sourceModel, error) {
	m, err := cfg.ResolveModel(name)
	if err != nil {
		return config.Model{}, nil, err
	}
	client, err := newModel(cfg, m)
	if err != nil {
		return config.Model{}, nil, fmt.Errorf("creating model %s: %w", m.Ref(), err)
	}
	return m, client, nil
}
