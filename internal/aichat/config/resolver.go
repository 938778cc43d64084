package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expandEnvVar expands environment variable references in the given value
// Supports both $VAR and ${VAR} syntax
// Returns the expanded value. If the environment variable is not set, returns empty string.
func expandEnvVar(value string) string {
	if !strings.HasPrefix(value, "$") {
		return value
	}

	var envVarName string
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVarName = value[2 : len(value)-1]
	} else {
		envVarName = strings.TrimPrefix(value, "$")
	}

	return os.Getenv(envVarName)
}

// GetBaseURL returns the base URL for the specified source
func (c *Config) GetBaseURL(source string) (string, error) {
	src, ok := c.Sources[source]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	baseURL := strings.TrimRight(expandEnvVar(src.BaseURL), "/")
	if baseURL == "" {
		return "", fmt.Errorf("%s base URL is not configured. Set it in config file (sources.%s.base_url) or environment variable (AICHAT_SOURCES_%s_BASE_URL)", source, source, strings.ToUpper(source))
	}

	return baseURL, nil
}

// GetToken returns the API key for the specified source. Environment
// variable references are expanded here so they are never written back.
func (c *Config) GetToken(source string) (string, error) {
	src, ok := c.Sources[source]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	token := expandEnvVar(src.APIKey)
	if token == "" {
		return "", fmt.Errorf("%s token is not configured. Set it with 'aichat model setapi %s <key>', in config file (sources.%s.api_key) or environment variable (AICHAT_SOURCES_%s_API_KEY)", source, source, source, strings.ToUpper(source))
	}

	return token, nil
}

// ResolvePath converts a relative path to an absolute one. "~/" expands to
// the home directory; other relative paths are joined to base, or to the
// working directory when base is empty.
func ResolvePath(path, base string) (string, error) {
	if path == "" {
		return "", nil
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error getting home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}

	if filepath.IsAbs(path) {
		return path, nil
	}

	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("error getting current working directory: %w", err)
		}
		base = cwd
	}

	if !filepath.IsAbs(base) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("error getting current working directory: %w", err)
		}
		base = filepath.Join(cwd, base)
	}

	return filepath.Join(base, path), nil
}
