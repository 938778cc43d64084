// Package ollama implements aichat.Model for a local Ollama server.
//
// The Gemini shaped payload is translated to /api/chat: the system
// instruction becomes a leading system message and the "model" role becomes
// "assistant".
package ollama

// Message represents a chat message in the conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the request body for /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// Options contains model parameters for inference.
type Options struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Maximum number of tokens to generate
}

// ChatResponse is a non-streaming /api/chat response, and also the shape of
// every line of a streaming one.
type ChatResponse struct {
	Model   string   `json:"model"`
	Message *Message `json:"message"`
	Done    bool     `json:"done"`
	Error   string   `json:"error,omitempty"`
}

// ListModelsResponse is the response from /api/tags.
type ListModelsResponse struct {
	Models []ModelData `json:"models"`
}

// ModelData describes an installed model.
type ModelData struct {
	Name    string       `json:"name"`
	Size    int64        `json:"size"`
	Details ModelDetails `json:"details"`
}

// ModelDetails contains model metadata.
type ModelDetails struct {
	Family            string `json:"family"`
	ParameterSize     string `json:"parameter_size"`
	QuantizationLevel string `json:"quantization_level"`
}

// ShowModelRequest is the request body for /api/show.
type ShowModelRequest struct {
	Name string `json:"name"`
}
