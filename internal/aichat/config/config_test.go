package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFile(t *testing.T, content string) (*Config, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v := viper.New()
	SetDefaults(v, NewDefaultConfig(dir))
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	return cfg, dir
}

func TestLoadDefaults(t *testing.T) {
	cfg, dir := loadFile(t, "")

	assert.Equal(t, filepath.Join(dir, "chats"), cfg.ChatDir)
	assert.Equal(t, []string{filepath.Join(dir, "prompts")}, cfg.PromptDirs)
	assert.True(t, cfg.Stream)
	assert.True(t, cfg.Markdown)
	assert.Equal(t, 60*time.Second, cfg.Timeout())
	assert.Equal(t, Generation{Temperature: 0.3, TopP: 0.75, TopK: 40, MaxOutputTokens: 8000}, cfg.Generation)
	assert.Equal(t, []string{"gemini", "ollama"}, cfg.SourceNames())
	assert.Equal(t, "$GEMINI_API_KEY", cfg.Sources["gemini"].APIKey)
}

func TestLoadFile(t *testing.T) {
	cfg, dir := loadFile(t, `
default_model = "gemini-2.0-flash"
chat_dir = "history"
prompt_dirs = ["/abs/prompts", "local"]
stream = false
timeout_seconds = 5

[[models]]
name = "gemini-2.0-flash"
source = "gemini"

[[models]]
name = "llama3.2"
source = "ollama"

[sources.gemini]
api_key = "secret"

[generation]
temperature = 0.9
`)

	assert.Equal(t, "gemini-2.0-flash", cfg.DefaultModel)
	assert.Equal(t, []Model{
		{Name: "gemini-2.0-flash", Source: "gemini"},
		{Name: "llama3.2", Source: "ollama"},
	}, cfg.Models)
	assert.Equal(t, filepath.Join(dir, "history"), cfg.ChatDir)
	assert.Equal(t, []string{"/abs/prompts", filepath.Join(dir, "local")}, cfg.PromptDirs)
	assert.False(t, cfg.Stream)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, 0.9, cfg.Generation.Temperature)
	assert.Equal(t, 40, cfg.Generation.TopK)

	// Unset nested keys keep their defaults.
	assert.Equal(t, DefaultGeminiBaseURL, cfg.Sources["gemini"].BaseURL)
	assert.Equal(t, "secret", cfg.Sources["gemini"].APIKey)
}

func TestGetToken(t *testing.T) {
	cfg := NewDefaultConfig(t.TempDir())

	t.Setenv("GEMINI_API_KEY", "")
	_, err := cfg.GetToken("gemini")
	assert.Error(t, err)

	t.Setenv("GEMINI_API_KEY", "from-env")
	token, err := cfg.GetToken("gemini")
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)

	t.Setenv("MY_KEY", "braced")
	require.NoError(t, cfg.SetAPIKey("gemini", "${MY_KEY}"))
	token, err = cfg.GetToken("gemini")
	require.NoError(t, err)
	assert.Equal(t, "braced", token)

	require.NoError(t, cfg.SetAPIKey("gemini", "literal"))
	token, err = cfg.GetToken("gemini")
	require.NoError(t, err)
	assert.Equal(t, "literal", token)

	_, err = cfg.GetToken("nope")
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestGetBaseURL(t *testing.T) {
	cfg := NewDefaultConfig(t.TempDir())

	url, err := cfg.GetBaseURL("ollama")
	require.NoError(t, err)
	assert.Equal(t, DefaultOllamaBaseURL, url)

	cfg.Sources["ollama"] = Source{BaseURL: "http://box:11434/"}
	url, err = cfg.GetBaseURL("ollama")
	require.NoError(t, err)
	assert.Equal(t, "http://box:11434", url)

	cfg.Sources["ollama"] = Source{}
	_, err = cfg.GetBaseURL("ollama")
	assert.Error(t, err)
}

func TestModelManagement(t *testing.T) {
	cfg := NewDefaultConfig(t.TempDir())

	_, err := cfg.ResolveModel("")
	assert.ErrorIs(t, err, ErrNoModels)

	require.NoError(t, cfg.AddModel("gemini-2.0-flash", "gemini"))
	assert.Equal(t, "gemini-2.0-flash", cfg.DefaultModel)

	require.NoError(t, cfg.AddModel("llama3.2", "ollama"))
	assert.Equal(t, "gemini-2.0-flash", cfg.DefaultModel)

	assert.ErrorIs(t, cfg.AddModel("llama3.2", "ollama"), ErrModelExists)
	assert.ErrorIs(t, cfg.AddModel("gpt", "openai"), ErrUnknownSource)
	assert.ErrorIs(t, cfg.AddModel("", "gemini"), ErrIncompleteName)

	m, err := cfg.ResolveModel("")
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-2.0-flash", m.Ref())

	m, err = cfg.ResolveModel("llama3.2")
	require.NoError(t, err)
	assert.Equal(t, "ollama", m.Source)

	_, err = cfg.ResolveModel("missing")
	assert.ErrorIs(t, err, ErrModelNotFound)

	assert.ErrorIs(t, cfg.RemoveModel("gemini-2.0-flash"), ErrDefaultModel)
	assert.ErrorIs(t, cfg.SelectDefault("missing"), ErrModelNotFound)

	require.NoError(t, cfg.SelectDefault("llama3.2"))
	require.NoError(t, cfg.RemoveModel("gemini-2.0-flash"))
	assert.ErrorIs(t, cfg.RemoveModel("gemini-2.0-flash"), ErrModelNotFound)
	assert.Equal(t, []Model{{Name: "llama3.2", Source: "ollama"}}, cfg.Models)
}

func TestResolveModelFallsBackToFirst(t *testing.T) {
	cfg := NewDefaultConfig(t.TempDir())
	cfg.Models = []Model{{Name: "a", Source: "ollama"}, {Name: "b", Source: "ollama"}}

	m, err := cfg.ResolveModel("")
	require.NoError(t, err)
	assert.Equal(t, "a", m.Name)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg := NewDefaultConfig(dir)
	require.NoError(t, cfg.AddModel("llama3.2", "ollama"))
	require.NoError(t, cfg.SetAPIKey("gemini", "$OTHER_KEY"))
	require.NoError(t, cfg.Save(path))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	loaded, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, cfg.Models, loaded.Models)
	assert.Equal(t, cfg.DefaultModel, loaded.DefaultModel)
	assert.Equal(t, cfg.Sources, loaded.Sources)
	assert.Equal(t, cfg.Generation, loaded.Generation)
	assert.Equal(t, cfg.ChatDir, loaded.ChatDir)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		base string
		want string
	}{
		{name: "empty", path: "", base: "/base", want: ""},
		{name: "absolute", path: "/x/y", base: "/base", want: "/x/y"},
		{name: "home", path: "~/chats", base: "/base", want: filepath.Join(home, "chats")},
		{name: "relative to base", path: "chats", base: "/base", want: "/base/chats"},
		{name: "relative to cwd", path: "chats", base: "", want: filepath.Join(cwd, "chats")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(tt.path, tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFileKeepsStoredSettings(t *testing.T) {
	t.Setenv("AICHAT_SOURCES_GEMINI_API_KEY", "from-env-secret")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
chat_dir = "chats"
prompt_dirs = ["~/prompts", "local"]

[sources.gemini]
base_url = "https://example.test/v1beta"
api_key = "$GEMINI_API_KEY"
`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "chats", cfg.ChatDir)
	assert.Equal(t, []string{"~/prompts", "local"}, cfg.PromptDirs)
	assert.Equal(t, "$GEMINI_API_KEY", cfg.Sources["gemini"].APIKey)
	assert.Equal(t, DefaultOllamaBaseURL, cfg.Sources["ollama"].BaseURL)

	require.NoError(t, cfg.AddModel("gemini-2.0-flash", "gemini"))
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `chat_dir = "chats"`)
	assert.Contains(t, content, `"~/prompts"`)
	assert.Contains(t, content, `api_key = "$GEMINI_API_KEY"`)
	assert.NotContains(t, content, "from-env-secret")
	assert.NotContains(t, content, dir)
}

func TestLoadFileMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "chats", cfg.ChatDir)
	assert.Equal(t, []string{"prompts"}, cfg.PromptDirs)
	assert.Empty(t, cfg.Models)
}
