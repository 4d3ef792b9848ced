package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/internal/llm"
)

func TestComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"content":" {\"doc_type\":\"sds\",\"confidence\":0.9} "}}],"usage":{"prompt_tokens":120,"completion_tokens":12}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	req := llm.UserRequest("system prompt", "classify me", 100)
	req.JSONObject = true
	resp, err := c.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, `{"doc_type":"sds","confidence":0.9}`, resp.Text)
	assert.Equal(t, 120, resp.Usage.InputTokens)
	assert.Equal(t, 12, resp.Usage.OutputTokens)
	assert.Equal(t, float64(100), got["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestComplete_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil).Complete(context.Background(), llm.UserRequest("", "x", 10))
	var se *llm.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.True(t, se.Retryable())
}
