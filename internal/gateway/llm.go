package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/naka-gawa/weekly-report/internal/config"
	"github.com/naka-gawa/weekly-report/internal/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ChatBackend is one OpenAI-compatible chat-completions provider.
type ChatBackend struct {
	name   string
	model  openai.ChatModel
	client openai.Client
}

// NewChatBackend builds a backend from provider settings. Extra options are applied last.
func NewChatBackend(p config.ProviderSettings, opts ...option.RequestOption) *ChatBackend {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(p.APIKey),
		option.WithMaxRetries(1),
		option.WithRequestTimeout(90 * time.Second),
	}
	if p.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &ChatBackend{
		name:   p.Name,
		model:  openai.ChatModel(p.Model),
		client: openai.NewClient(reqOpts...),
	}
}

func (b *ChatBackend) Name() string { return b.name }

// Complete sends the prompt and returns the first choice's text.
func (b *ChatBackend) Complete(ctx context.Context, prompt domain.Prompt) (string, error) {
	res, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: b.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to complete with %s: %w", b.name, err)
	}
	if len(res.Choices) == 0 {
		return "", errors.New(b.name + " returned no choices")
	}
	return res.Choices[0].Message.Content, nil
}
