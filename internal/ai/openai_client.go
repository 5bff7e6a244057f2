package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/edgard/adviserbot/internal/config"
)

// OpenAIClient talks to OpenAI or any API compatible with it.
type OpenAIClient struct {
	client           *openai.Client
	completionModel  string
	chatModel        string
	temperature      float32
	topP             float32
	frequencyPenalty float32
	presencePenalty  float32
	maxTokens        int
	retry            retrier
	log              *slog.Logger
}

func NewOpenAIClient(cfg config.AIConfig, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.Token == "" {
		return nil, errors.New("AI token is required")
	}

	aiConfig := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		aiConfig.BaseURL = cfg.BaseURL
	}
	aiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	log := logger.With("component", "openai_client")
	log.Info("OpenAI client initialized", "completion_model", cfg.CompletionModel, "chat_model", cfg.ChatModel)

	return &OpenAIClient{
		client:           openai.NewClientWithConfig(aiConfig),
		completionModel:  cfg.CompletionModel,
		chatModel:        cfg.ChatModel,
		temperature:      cfg.Temperature,
		topP:             cfg.TopP,
		frequencyPenalty: cfg.FrequencyPenalty,
		presencePenalty:  cfg.PresencePenalty,
		maxTokens:        cfg.MaxTokens,
		retry: retrier{
			maxRetries: cfg.MaxRetries,
			delay:      cfg.RetryDelay,
			retriable:  openAIRetriable,
			log:        log,
		},
		log: log,
	}, nil
}

// Complete runs a plain text completion.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.retry.do(ctx, "completion", func(ctx context.Context) (string, error) {
		resp, err := c.client.CreateCompletion(ctx, openai.CompletionRequest{
			Model:       c.completionModel,
			Prompt:      prompt,
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("completion returned no choices")
		}
		return nonEmpty("completion", resp.Choices[0].Text)
	})
}

// Chat runs a chat completion with one system and one user message.
func (c *OpenAIClient) Chat(ctx context.Context, system, user string) (string, error) {
	return c.retry.do(ctx, "chat completion", func(ctx context.Context) (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			MaxTokens:        c.maxTokens,
			Temperature:      c.temperature,
			TopP:             c.topP,
			FrequencyPenalty: c.frequencyPenalty,
			PresencePenalty:  c.presencePenalty,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("chat completion returned no choices")
		}
		return nonEmpty("chat completion", resp.Choices[0].Message.Content)
	})
}

// openAIRetriable reports rate limits and server errors.
func openAIRetriable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}

var _ Client = (*OpenAIClient)(nil)
