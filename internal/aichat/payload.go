package aichat

import "strings"

// Payload is the request body rendered from a transcript.
// Its JSON shape is the Gemini generateContent body.
type Payload struct {
	SystemInstruction *SystemInstruction `json:"system_instruction,omitempty"`
	Contents          []Content          `json:"contents"`
	GenerationConfig  *GenerationConfig  `json:"generationConfig,omitempty"`
}

// SystemInstruction holds the system prompt parts.
type SystemInstruction struct {
	Parts []Part `json:"parts"`
}

// Content is a single conversational turn.
type Content struct {
	Role  string `json:"role,omitempty"` // "user", "model" or a source specific role
	Parts []Part `json:"parts"`
}

// Part is a text fragment of a turn or of the system instruction.
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig carries sampling parameters.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// SystemText returns the system instruction parts joined by blank lines.
func (p *Payload) SystemText() string {
	if p == nil || p.SystemInstruction == nil {
		return ""
	}
	texts := make([]string, 0, len(p.SystemInstruction.Parts))
	for _, part := range p.SystemInstruction.Parts {
		texts = append(texts, part.Text)
	}
	return strings.Join(texts, "\n\n")
}

// WithGenerationConfig returns a shallow copy of p with gc attached.
// The transcript owned payload is left untouched.
func (p *Payload) WithGenerationConfig(gc *GenerationConfig) *Payload {
	if p == nil {
		return nil
	}
	out := *p
	out.GenerationConfig = gc
	return &out
}
