package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		opts     []Option
		args     map[string]string
		expected string
	}{
		{
			name:     "missing token becomes empty",
			body:     "Hello {{name}}, you are {{age}}",
			args:     map[string]string{"name": "Ada"},
			expected: "Hello Ada, you are ",
		},
		{
			name:     "all occurrences replaced together",
			body:     "{{x}} and {{x}} again",
			args:     map[string]string{"x": "1"},
			expected: "1 and 1 again",
		},
		{
			name:     "defaults used after arguments",
			body:     "{{greeting}} {{name}}",
			opts:     []Option{WithDefaults(map[string]string{"greeting": "Hi", "name": "nobody"})},
			args:     map[string]string{"name": "Ada"},
			expected: "Hi Ada",
		},
		{
			name:     "ignore leaves token untouched",
			body:     "Hello {{name}}",
			opts:     []Option{WithMissingPolicy(MissingIgnore)},
			expected: "Hello {{name}}",
		},
		{
			name:     "custom delimiters are literal",
			body:     "Hello $(name) and {{name}}",
			opts:     []Option{WithDelimiters("$(", ")")},
			args:     map[string]string{"name": "Ada"},
			expected: "Hello Ada and {{name}}",
		},
		{
			name:     "empty token name",
			body:     "a{{}}b",
			args:     map[string]string{"": "-"},
			expected: "a-b",
		},
		{
			name:     "non greedy match",
			body:     "{{a}}{{b}}",
			args:     map[string]string{"a": "1", "b": "2"},
			expected: "12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := New(tt.body, tt.opts...)
			assert.Equal(t, tt.expected, tmpl.Format(tt.args))
		})
	}
}

func TestFormatWithoutTokensReturnsBody(t *testing.T) {
	bodies := []string{"", "plain text", "  spaced  ", "{{ unterminated", "}} reversed {{", "line\nbreak"}
	for _, body := range bodies {
		tmpl := New(body)
		assert.Equal(t, body, tmpl.Format(nil))
		assert.Equal(t, body, tmpl.Format(map[string]string{"unused": "x"}))
	}
}

func TestWarnPolicyKeepsTokenAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tmpl := New("Hello {{name}}, {{known}}",
		WithMissingPolicy(MissingWarn),
		WithLogger(zap.New(core)),
	)

	out := tmpl.Format(map[string]string{"known": "ok"})

	// Unresolved tokens are left in place under the warn policy.
	assert.Equal(t, "Hello {{name}}, ok", out)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "template token was not replaced", entry.Message)
	assert.Equal(t, "name", entry.ContextMap()["token"])
}

func TestIgnorePolicyDoesNotLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tmpl := New("{{a}}", WithMissingPolicy(MissingIgnore), WithLogger(zap.New(core)))
	assert.Equal(t, "{{a}}", tmpl.Format(nil))
	assert.Equal(t, 0, logs.Len())
}

func TestExpectedTokens(t *testing.T) {
	tmpl := New("{{b}} {{a}} {{b}} {{}}")
	assert.Equal(t, []string{"", "a", "b"}, tmpl.ExpectedTokens())

	assert.Empty(t, New("no tokens").ExpectedTokens())
}

func TestAddDefault(t *testing.T) {
	tmpl := New("{{input}}!")
	assert.Equal(t, "!", tmpl.Format(nil))

	tmpl.AddDefault("input", "hi")
	assert.Equal(t, "hi!", tmpl.Format(nil))
	assert.Equal(t, "bye!", tmpl.Format(map[string]string{"input": "bye"}))
}

func TestPartialFormat(t *testing.T) {
	tmpl := New("[[a]] [[b]]",
		WithDelimiters("[[", "]]"),
		WithMissingPolicy(MissingIgnore),
	)

	partial := tmpl.PartialFormat(map[string]string{"a": "1"})
	assert.Equal(t, "1 [[b]]", partial.Body())
	assert.Equal(t, []string{"b"}, partial.ExpectedTokens())
	assert.Equal(t, "1 2", partial.Format(map[string]string{"b": "2"}))

	// The source template is unchanged.
	assert.Equal(t, "[[a]] [[b]]", tmpl.Body())
}

func TestParseMissingPolicy(t *testing.T) {
	for input, want := range map[string]MissingPolicy{
		"empty":  MissingEmpty,
		"":       MissingEmpty,
		" WARN ": MissingWarn,
		"ignore": MissingIgnore,
	} {
		got, err := ParseMissingPolicy(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
		if input != "" {
			assert.Equal(t, want.String(), got.String())
		}
	}

	_, err := ParseMissingPolicy("loud")
	assert.Error(t, err)
}

func TestFormatDoesNotRescanValues(t *testing.T) {
	tmpl := New("{{a}} {{b}}")
	// Map order must not matter: the value of a is inserted as is.
	for i := 0; i < 100; i++ {
		assert.Equal(t, "{{b}} X", tmpl.Format(map[string]string{"a": "{{b}}", "b": "X"}))
	}

	withInput := New("Translate: {{input}} to {{lang}}", WithDefaults(map[string]string{"input": "say {{lang}}"}))
	assert.Equal(t, "Translate: say {{lang}} to French", withInput.Format(map[string]string{"lang": "French"}))
}

func TestWarnPolicyLogsEachTokenOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tmpl := New("{{x}} and {{x}} and {{y}}", WithMissingPolicy(MissingWarn), WithLogger(zap.New(core)))

	assert.Equal(t, "{{x}} and {{x}} and {{y}}", tmpl.Format(nil))
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "x", logs.All()[0].ContextMap()["token"])
	assert.Equal(t, "y", logs.All()[1].ContextMap()["token"])
}
