// Package template substitutes delimited tokens in message content.
package template

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultPrefix = "{{"
	DefaultSuffix = "}}"
)

// MissingPolicy decides what happens to a token with no argument and no default.
type MissingPolicy int

const (
	// MissingEmpty replaces the token with "".
	MissingEmpty MissingPolicy = iota
	// MissingWarn leaves the token in the output and logs a warning.
	MissingWarn
	// MissingIgnore leaves the token in the output silently.
	MissingIgnore
)

func (p MissingPolicy) String() string {
	switch p {
	case MissingEmpty:
		return "empty"
	case MissingWarn:
		return "warn"
	case MissingIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("MissingPolicy(%d)", int(p))
	}
}

// ParseMissingPolicy parses "empty", "warn" or "ignore".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "empty", "":
		return MissingEmpty, nil
	case "warn":
		return MissingWarn, nil
	case "ignore":
		return MissingIgnore, nil
	default:
		return MissingEmpty, fmt.Errorf("invalid missing policy: %s (expected empty, warn or ignore)", s)
	}
}

// Template is a body with prefix/suffix delimited tokens.
// Only the defaults change after construction.
type Template struct {
	body     string
	prefix   string
	suffix   string
	policy   MissingPolicy
	defaults map[string]string
	pattern  *regexp.Regexp
	logger   *zap.Logger
}

// Option configures a Template.
type Option func(*Template)

// WithDelimiters sets the token prefix and suffix.
func WithDelimiters(prefix, suffix string) Option {
	return func(t *Template) {
		t.prefix = prefix
		t.suffix = suffix
	}
}

// WithMissingPolicy sets the policy for unresolved tokens.
func WithMissingPolicy(p MissingPolicy) Option {
	return func(t *Template) {
		t.policy = p
	}
}

// WithDefaults sets default token values. The map is copied.
func WithDefaults(defaults map[string]string) Option {
	return func(t *Template) {
		for k, v := range defaults {
			t.defaults[k] = v
		}
	}
}

// WithLogger sets the logger used for unresolved token warnings.
func WithLogger(l *zap.Logger) Option {
	return func(t *Template) {
		t.logger = l
	}
}

// New creates a template for body. Without options the delimiters are
// "{{" and "}}" and missing tokens become "".
func New(body string, opts ...Option) *Template {
	t := &Template{
		body:     body,
		prefix:   DefaultPrefix,
		suffix:   DefaultSuffix,
		policy:   MissingEmpty,
		defaults: map[string]string{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = zap.L()
	}
	t.pattern = regexp.MustCompile(regexp.QuoteMeta(t.prefix) + `(.*?)` + regexp.QuoteMeta(t.suffix))
	return t
}

// Body returns the unformatted body.
func (t *Template) Body() string {
	return t.body
}

// AddDefault registers a default value for token.
func (t *Template) AddDefault(token, value string) {
	t.defaults[token] = value
}

// ExpectedTokens returns the sorted distinct token names present in the body.
func (t *Template) ExpectedTokens() []string {
	set := t.tokens()
	return slices.Sorted(maps.Keys(set))
}

// Format replaces every token in one pass over the body, looking values up
// in args first, then in the defaults, then applying the missing policy.
// Substituted values are never scanned for tokens.
func (t *Template) Format(args map[string]string) string {
	if !t.pattern.MatchString(t.body) {
		return t.body
	}

	warned := map[string]bool{}
	return t.pattern.ReplaceAllStringFunc(t.body, func(match string) string {
		token := match[len(t.prefix) : len(match)-len(t.suffix)]
		if value, ok := args[token]; ok {
			return value
		}
		if value, ok := t.defaults[token]; ok {
			return value
		}

		switch t.policy {
		case MissingEmpty:
			return ""
		case MissingWarn:
			if !warned[token] {
				warned[token] = true
				t.logger.Warn("template token was not replaced", zap.String("token", token))
			}
		}
		return match
	})
}

// PartialFormat formats the body and returns it as a new template sharing
// the delimiters, policy and a copy of the defaults.
func (t *Template) PartialFormat(args map[string]string) *Template {
	return New(t.Format(args),
		WithDelimiters(t.prefix, t.suffix),
		WithMissingPolicy(t.policy),
		WithDefaults(t.defaults),
		WithLogger(t.logger),
	)
}

func (t *Template) tokens() map[string]struct{} {
	matches := t.pattern.FindAllStringSubmatch(t.body, -1)
	if len(matches) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		set[m[1]] = struct{}{}
	}
	return set
}
