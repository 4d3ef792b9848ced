package anthropic

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
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"claude","content":[{"type":"text","text":"[{\"canonical_key\":\"shipment.invoice_number\"}]"}],"usage":{"input_tokens":900,"output_tokens":40}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	resp, err := c.Complete(context.Background(), llm.UserRequest("extract", "page text", 2048))
	require.NoError(t, err)

	assert.Equal(t, `[{"canonical_key":"shipment.invoice_number"}]`, resp.Text)
	assert.Equal(t, 900, resp.Usage.InputTokens)
	assert.Equal(t, 40, resp.Usage.OutputTokens)
	assert.Equal(t, "extract", got["system"])
	assert.Equal(t, float64(2048), got["max_tokens"])
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil).Complete(context.Background(), llm.UserRequest("", "x", 10))
	var se *llm.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
}

func TestComplete_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil).Complete(context.Background(), llm.UserRequest("", "x", 10))
	assert.Error(t, err)
}
