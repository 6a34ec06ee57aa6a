package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// CompletionRequest is a single-turn chat completion.
type CompletionRequest struct {
	Prompt string
	// Schema requests structured output. Leave nil for free text.
	Schema            json.Marshaler
	SchemaName        string
	SchemaDescription string
	Model             string
}

// Completer sends prompts to an LLM and returns the raw answer.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type openAICompleter struct {
	client openai.Client
	logger *slog.Logger
}

type unconfiguredCompleter struct{}

func (unconfiguredCompleter) Complete(context.Context, CompletionRequest) (string, error) {
	return "", ErrNotConfigured
}

// NewOpenAICompleter creates a Completer for the OpenAI chat completions API. baseURL may be empty to use the
// default endpoint. Without an API key every call fails with ErrNotConfigured.
func NewOpenAICompleter(apiKey, baseURL string, logger *slog.Logger) Completer {
	if apiKey == "" {
		return unconfiguredCompleter{}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAICompleter{
		client: openai.NewClient(opts...),
		logger: logger,
	}
}

func (c *openAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{ //nolint:exhaustruct // only need to set a few fields.
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Model: req.Model,
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.SchemaName,
					Description: openai.String(req.SchemaDescription),
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	start := time.Now()
	chat, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", classify(err))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion done",
		slog.String("model", req.Model),
		slog.Duration("duration", time.Since(start)),
		slog.Int64("prompt_tokens", chat.Usage.PromptTokens),
		slog.Int64("completion_tokens", chat.Usage.CompletionTokens))

	if len(chat.Choices) == 0 {
		return "", &RemoteError{Kind: FailureEmptyResponse, Err: errors.New("no choices in response")}
	}
	msg := chat.Choices[0].Message
	if msg.Refusal != "" {
		return "", &RemoteError{Kind: FailureEmptyResponse, Err: errors.New("model refused",
			slog.String("refusal", msg.Refusal))}
	}
	if msg.Content == "" {
		return "", &RemoteError{Kind: FailureEmptyResponse, Err: errors.New("empty message content")}
	}
	return msg.Content, nil
}
