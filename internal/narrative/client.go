package narrative

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Options tune a single completion.
type Options struct {
	Temperature float32
	MaxTokens   int
}

func DefaultOptions() Options { return Options{Temperature: 0.7, MaxTokens: 1000} }

// Completer is the external text-generation collaborator.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error)
}

const DefaultModel = openai.GPT4oMini

// OpenAIClient completes prompts through an OpenAI-compatible chat API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client. An empty baseURL uses the public API.
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
