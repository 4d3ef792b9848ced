// Package llm is the provider neutral model-call capability used by the
// classifier and the field extractor.
package llm

import (
	"context"
	"fmt"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single text completion.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float32
	// JSONObject asks providers that support it to return a single JSON object.
	JSONObject bool
}

// UserRequest is a shorthand for a one-message request.
func UserRequest(system, user string, maxTokens int) Request {
	return Request{
		System:    system,
		Messages:  []Message{{Role: "user", Content: user}},
		MaxTokens: maxTokens,
	}
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Completer is the interface the classifier and extractor depend on.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.Code, e.Body)
}

// Retryable reports whether the request may succeed when sent again.
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}
