package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/longkey1/aichat/internal/aichat"
	"github.com/spf13/viper"
)

const (
	// AppName names the config directory and the environment prefix.
	AppName = "aichat"

	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultOllamaBaseURL = "http://localhost:11434"
)

var (
	ErrModelNotFound  = errors.New("model not found")
	ErrModelExists    = errors.New("model already exists")
	ErrDefaultModel   = errors.New("cannot remove the default model")
	ErrNoModels       = errors.New("no models configured")
	ErrUnknownSource  = errors.New("unknown model source")
	ErrIncompleteName = errors.New("model name and source are required")
)

// Config holds the configuration for aichat
type Config struct {
	DefaultModel   string            `toml:"default_model" mapstructure:"default_model"` // Name of an entry in Models
	Models         []Model           `toml:"models" mapstructure:"models"`
	Sources        map[string]Source `toml:"sources" mapstructure:"sources"`
	ChatDir        string            `toml:"chat_dir" mapstructure:"chat_dir"`
	PromptDirs     []string          `toml:"prompt_dirs" mapstructure:"prompt_dirs"`
	Stream         bool              `toml:"stream" mapstructure:"stream"`
	Markdown       bool              `toml:"markdown" mapstructure:"markdown"`
	TimeoutSeconds int               `toml:"timeout_seconds" mapstructure:"timeout_seconds"`
	Generation     Generation        `toml:"generation" mapstructure:"generation"`
}

// Model is a saved model: a name as known by its source.
type Model struct {
	Name   string `toml:"name" mapstructure:"name"`     // e.g. "gemini-2.0-flash"
	Source string `toml:"source" mapstructure:"source"` // e.g. "gemini"
}

// Ref returns the "source:name" form recorded in chat files.
func (m Model) Ref() string {
	return aichat.FormatModelString(m.Source, m.Name)
}

// Source holds the connection settings for a model source.
type Source struct {
	BaseURL string `toml:"base_url" mapstructure:"base_url"`
	APIKey  string `toml:"api_key,omitempty" mapstructure:"api_key"` // Either a key or an env reference like "$GEMINI_API_KEY"
}

// Generation holds the sampling parameters sent with every request.
type Generation struct {
	Temperature     float64 `toml:"temperature" mapstructure:"temperature"`
	TopP            float64 `toml:"top_p" mapstructure:"top_p"`
	TopK            int     `toml:"top_k" mapstructure:"top_k"`
	MaxOutputTokens int     `toml:"max_output_tokens" mapstructure:"max_output_tokens"`
}

// NewDefaultConfig returns a new Config with default values rooted at configDir
func NewDefaultConfig(configDir string) *Config {
	return &Config{
		DefaultModel: "",
		Models:       []Model{},
		Sources: map[string]Source{
			"gemini": {BaseURL: DefaultGeminiBaseURL, APIKey: "$GEMINI_API_KEY"},
			"ollama": {BaseURL: DefaultOllamaBaseURL},
		},
		ChatDir:        filepath.Join(configDir, "chats"),
		PromptDirs:     []string{filepath.Join(configDir, "prompts")},
		Stream:         true,
		Markdown:       true,
		TimeoutSeconds: 60,
		Generation: Generation{
			Temperature:     0.3,
			TopP:            0.75,
			TopK:            40,
			MaxOutputTokens: 8000,
		},
	}
}

// SetDefaults registers the values of cfg as viper defaults.
func SetDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("default_model", cfg.DefaultModel)
	v.SetDefault("models", cfg.Models)
	for name, src := range cfg.Sources {
		v.SetDefault("sources."+name+".base_url", src.BaseURL)
		v.SetDefault("sources."+name+".api_key", src.APIKey)
	}
	v.SetDefault("chat_dir", cfg.ChatDir)
	v.SetDefault("prompt_dirs", cfg.PromptDirs)
	v.SetDefault("stream", cfg.Stream)
	v.SetDefault("markdown", cfg.Markdown)
	v.SetDefault("timeout_seconds", cfg.TimeoutSeconds)
	v.SetDefault("generation.temperature", cfg.Generation.Temperature)
	v.SetDefault("generation.top_p", cfg.Generation.TopP)
	v.SetDefault("generation.top_k", cfg.Generation.TopK)
	v.SetDefault("generation.max_output_tokens", cfg.Generation.MaxOutputTokens)
}

// DefaultDir returns $HOME/.config/aichat.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from v. Relative directories are resolved
// against the directory of the config file in use.
func LoadFrom(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	var base string
	if file := v.ConfigFileUsed(); file != "" {
		base = filepath.Dir(file)
	}

	chatDir, err := ResolvePath(config.ChatDir, base)
	if err != nil {
		return nil, fmt.Errorf("error resolving chat directory path '%s': %w", config.ChatDir, err)
	}
	config.ChatDir = chatDir

	for i, promptDir := range config.PromptDirs {
		absPath, err := ResolvePath(promptDir, base)
		if err != nil {
			return nil, fmt.Errorf("error resolving prompt directory path '%s': %w", promptDir, err)
		}
		config.PromptDirs[i] = absPath
	}

	if config.Sources == nil {
		config.Sources = map[string]Source{}
	}

	return config, nil
}

// LoadFile reads the settings stored in path, without environment overrides
// and with directories left as written. Use it for a config that is about to
// be saved. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v, NewDefaultConfig(""))
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if config.Sources == nil {
		config.Sources = map[string]Source{}
	}
	return config, nil
}

// Save writes the configuration to path as TOML, replacing the file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(c); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// Timeout returns the request timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GenerationConfig returns the sampling parameters in payload form.
func (c *Config) GenerationConfig() *aichat.GenerationConfig {
	return &aichat.GenerationConfig{
		Temperature:     c.Generation.Temperature,
		TopP:            c.Generation.TopP,
		TopK:            c.Generation.TopK,
		MaxOutputTokens: c.Generation.MaxOutputTokens,
	}
}

// SourceNames returns the configured source names, sorted.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FindModel returns the saved model with the given name.
func (c *Config) FindModel(name string) (Model, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// ResolveModel returns the named model, or the default model when name is
// empty. Without a default, the first saved model is used.
func (c *Config) ResolveModel(name string) (Model, error) {
	if name == "" {
		name = c.DefaultModel
	}
	if name == "" {
		if len(c.Models) == 0 {
			return Model{}, ErrNoModels
		}
		return c.Models[0], nil
	}
	m, ok := c.FindModel(name)
	if !ok {
		return Model{}, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return m, nil
}

// AddModel saves a model. The first model saved becomes the default.
func (c *Config) AddModel(name, source string) error {
	if name == "" || source == "" {
		return ErrIncompleteName
	}
	if _, ok := c.Sources[source]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	if _, ok := c.FindModel(name); ok {
		return fmt.Errorf("%w: %s", ErrModelExists, name)
	}
	c.Models = append(c.Models, Model{Name: name, Source: source})
	if c.DefaultModel == "" {
		c.DefaultModel = name
	}
	return nil
}

// RemoveModel deletes a saved model. The default model cannot be removed.
func (c *Config) RemoveModel(name string) error {
	if name == c.DefaultModel {
		return fmt.Errorf("%w: %s", ErrDefaultModel, name)
	}
	idx := slices.IndexFunc(c.Models, func(m Model) bool { return m.Name == name })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	c.Models = slices.Delete(c.Models, idx, idx+1)
	return nil
}

// SelectDefault makes a saved model the default.
func (c *Config) SelectDefault(name string) error {
	if _, ok := c.FindModel(name); !ok {
		return fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	c.DefaultModel = name
	return nil
}

// SetAPIKey sets the API key of a configured source.
func (c *Config) SetAPIKey(source, key string) error {
	src, ok := c.Sources[source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	src.APIKey = key
	c.Sources[source] = src
	return nil
}
