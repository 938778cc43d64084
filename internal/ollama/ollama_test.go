package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/longkey1/aichat/internal/aichat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewModel("llama3.2", Config{BaseURL: srv.URL, Logger: zap.NewNop()})
}

func testPayload() *aichat.Payload {
	return &aichat.Payload{
		SystemInstruction: &aichat.SystemInstruction{Parts: []aichat.Part{{Text: "Be helpful"}, {Text: "Be terse"}}},
		Contents: []aichat.Content{
			{Role: "user", Parts: []aichat.Part{{Text: "Hi"}}},
			{Role: "model", Parts: []aichat.Part{{Text: "Hello"}}},
			{Role: "user", Parts: []aichat.Part{{Text: "Bye"}}},
		},
		GenerationConfig: &aichat.GenerationConfig{Temperature: 0.3, TopP: 0.75, TopK: 40, MaxOutputTokens: 8000},
	}
}

func TestRequestTranslation(t *testing.T) {
	m := NewModel("llama3.2", Config{Logger: zap.NewNop()})
	req := m.request(testPayload(), true)

	assert.Equal(t, "llama3.2", req.Model)
	assert.True(t, req.Stream)
	assert.Equal(t, []Message{
		{Role: "system", Content: "Be helpful\n\nBe terse"},
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hello"},
		{Role: "user", Content: "Bye"},
	}, req.Messages)
	assert.Equal(t, &Options{Temperature: 0.3, TopK: 40, TopP: 0.75, NumPredict: 8000}, req.Options)

	bare := m.request(&aichat.Payload{Contents: []aichat.Content{{Role: "user", Parts: []aichat.Part{{Text: "Hi"}}}}}, false)
	assert.Len(t, bare.Messages, 1)
	assert.Nil(t, bare.Options)
}

func TestInvoke(t *testing.T) {
	var got ChatRequest
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"model":"llama3.2","message":{"role":"assistant","content":"Hello there"},"done":true}`)
	})

	text, err := m.Invoke(context.Background(), testPayload())
	require.NoError(t, err)
	assert.Equal(t, "Hello there", text)
	assert.False(t, got.Stream)
	assert.Len(t, got.Messages, 4)
}

func TestInvokeErrors(t *testing.T) {
	t.Run("model not found", func(t *testing.T) {
		m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"model 'llama3.2' not found"}`)
		})

		_, err := m.Invoke(context.Background(), testPayload())
		require.Error(t, err)
		assert.True(t, aichat.IsInvocationError(err))
		assert.Contains(t, err.Error(), "HTTP 404")
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("missing message", func(t *testing.T) {
		m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"done":true}`)
		})

		_, err := m.Invoke(context.Background(), testPayload())
		assert.ErrorIs(t, err, errNoMessage)
	})

	t.Run("nil payload", func(t *testing.T) {
		m := NewModel("llama3.2", Config{Logger: zap.NewNop()})
		_, err := m.Invoke(context.Background(), nil)
		assert.ErrorIs(t, err, aichat.ErrEmptyPayload)
	})
}

func TestStream(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hel"},"done":false}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"ignored"},"done":false}`)
	})

	stream, err := m.Stream(context.Background(), testPayload())
	require.NoError(t, err)
	defer stream.Close()

	var chunks []string
	for stream.Next() {
		chunks = append(chunks, stream.Chunk())
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"Hel", "lo", ""}, chunks)
}

func TestStreamWithoutTrailingNewline(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"content":"a"},"done":false}`+"\n"+`{"message":{"content":"b"},"done":false}`)
	})

	stream, err := m.Stream(context.Background(), testPayload())
	require.NoError(t, err)
	defer stream.Close()

	var chunks []string
	for stream.Next() {
		chunks = append(chunks, stream.Chunk())
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"a", "b"}, chunks)
}

func TestStreamErrorLine(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"a"},"done":false}`)
		fmt.Fprintln(w, `{"error":"out of memory"}`)
	})

	stream, err := m.Stream(context.Background(), testPayload())
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Next())
	assert.Equal(t, "a", stream.Chunk())
	assert.False(t, stream.Next())
	require.Error(t, stream.Err())
	assert.Contains(t, stream.Err().Error(), "out of memory")
}

func TestListModels(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[
			{"name":"llama3.2:latest","details":{"family":"llama","parameter_size":"3.2B","quantization_level":"Q4_K_M"}},
			{"name":"custom","details":{}}
		]}`)
	})

	models, err := m.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []aichat.ModelInfo{
		{ID: "llama3.2:latest", Description: "llama 3.2B Q4_K_M"},
		{ID: "custom", Description: ""},
	}, models)
}

func TestVerify(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		var req ShowModelRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Name == "llama3.2" {
			fmt.Fprint(w, `{}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, m.Verify(context.Background()))
}
