package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
)

const systemPrompt = "You are an analyst of corporate disclosures. " +
	"Always respond with a single JSON value that matches the schema described in the request, with no surrounding prose."

// OpenAICompleter implements structured completion over the OpenAI chat API.
// Responses are forced into JSON object mode; callers describe the expected
// schema in the prompt and parse the returned JSON themselves.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAICompleter creates a completer for the given chat model. An empty
// baseURL uses the public API endpoint.
func NewOpenAICompleter(baseURL, apiKey, model string) *OpenAICompleter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: 0.1,
	}
}

// Complete sends one schema-constrained request and returns the raw JSON text
// of the model's reply.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response generated")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ interfaces.StructuredCompleter = (*OpenAICompleter)(nil)
