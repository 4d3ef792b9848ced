package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

func TestNew(t *testing.T) {
	assert.Nil(t, New(common.LLMConfig{Provider: "none"}, nil))
	assert.Nil(t, New(common.LLMConfig{Provider: "anthropic"}, nil))
	assert.Nil(t, New(common.LLMConfig{Provider: "openai"}, nil))
	assert.NotNil(t, New(common.LLMConfig{Provider: "anthropic", AnthropicAPIKey: "k"}, nil))
	assert.NotNil(t, New(common.LLMConfig{Provider: "openai", OpenAIAPIKey: "k"}, nil))
}
