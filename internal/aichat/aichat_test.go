package aichat

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelString(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantSource string
		wantModel  string
		wantErr    bool
	}{
		{
			name:       "valid ollama model",
			input:      "ollama:llama3.2",
			wantSource: "ollama",
			wantModel:  "llama3.2",
			wantErr:    false,
		},
		{
			name:       "valid gemini model",
			input:      "gemini:gemini-2.0-flash",
			wantSource: "gemini",
			wantModel:  "gemini-2.0-flash",
			wantErr:    false,
		},
		{
			name:       "model with colon",
			input:      "ollama:llama3.2:1b",
			wantSource: "ollama",
			wantModel:  "llama3.2:1b",
			wantErr:    false,
		},
		{
			name:       "with whitespace",
			input:      " gemini : gemini-1.5-pro ",
			wantSource: "gemini",
			wantModel:  "gemini-1.5-pro",
			wantErr:    false,
		},
		{
			name:       "missing colon",
			input:      "gemini-2.0-flash",
			wantSource: "",
			wantModel:  "",
			wantErr:    true,
		},
		{
			name:       "empty source",
			input:      ":gemini-2.0-flash",
			wantSource: "",
			wantModel:  "",
			wantErr:    true,
		},
		{
			name:       "empty model",
			input:      "gemini:",
			wantSource: "",
			wantModel:  "",
			wantErr:    true,
		},
		{
			name:       "empty string",
			input:      "",
			wantSource: "",
			wantModel:  "",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, model, err := ParseModelString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseModelString() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if source != tt.wantSource {
				t.Errorf("ParseModelString() source = %v, want %v", source, tt.wantSource)
			}
			if model != tt.wantModel {
				t.Errorf("ParseModelString() model = %v, want %v", model, tt.wantModel)
			}
		})
	}
}

func TestFormatModelString(t *testing.T) {
	assert.Equal(t, "gemini:gemini-2.0-flash", FormatModelString("gemini", "gemini-2.0-flash"))

	source, model, err := ParseModelString(FormatModelString("ollama", "qwen2.5:14b"))
	require.NoError(t, err)
	assert.Equal(t, "ollama", source)
	assert.Equal(t, "qwen2.5:14b", model)
}

func TestPayloadJSON(t *testing.T) {
	p := &Payload{
		SystemInstruction: &SystemInstruction{Parts: []Part{{Text: "Be helpful"}}},
		Contents:          []Content{{Role: "user", Parts: []Part{{Text: "Hi"}}}},
	}

	data, err := json.Marshal(p.WithGenerationConfig(&GenerationConfig{Temperature: 0.3, TopP: 0.75, TopK: 40, MaxOutputTokens: 8000}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"system_instruction": {"parts": [{"text": "Be helpful"}]},
		"contents": [{"role": "user", "parts": [{"text": "Hi"}]}],
		"generationConfig": {"temperature": 0.3, "topP": 0.75, "topK": 40, "maxOutputTokens": 8000}
	}`, string(data))

	assert.Nil(t, p.GenerationConfig, "original payload must not be modified")
}

func TestPayloadSystemText(t *testing.T) {
	var nilPayload *Payload
	assert.Equal(t, "", nilPayload.SystemText())
	assert.Nil(t, nilPayload.WithGenerationConfig(&GenerationConfig{}))

	p := &Payload{SystemInstruction: &SystemInstruction{Parts: []Part{{Text: "a"}, {Text: "b"}}}}
	assert.Equal(t, "a\n\nb", p.SystemText())
}

func TestInvocationError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("turn failed: %w", &InvocationError{Model: "gemini-2.0-flash", Op: "invoke", Err: cause})

	assert.True(t, IsInvocationError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "gemini-2.0-flash invoke: connection refused")

	withStatus := &InvocationError{Model: "m", Op: "stream", Status: 403, Err: errors.New("denied")}
	assert.Equal(t, "m stream: HTTP 403: denied", withStatus.Error())
	assert.False(t, IsInvocationError(cause))
}
