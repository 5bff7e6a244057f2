package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/edgard/adviserbot/internal/config"
)

// GeminiClient generates text with Google's Gemini API.
type GeminiClient struct {
	genaiClient     *genai.Client
	completionModel string
	chatModel       string
	contentConfig   *genai.GenerateContentConfig
	retry           retrier
	log             *slog.Logger
}

func NewGeminiClient(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (*GeminiClient, error) {
	if cfg.Token == "" {
		return nil, errors.New("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Token,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	temperature := cfg.Temperature
	topP := cfg.TopP
	baseCfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		TopP:            &topP,
		MaxOutputTokens: int32(cfg.MaxTokens),
	}

	log := logger.With("component", "gemini_client")
	log.Info("Gemini client initialized", "completion_model", cfg.CompletionModel, "chat_model", cfg.ChatModel)

	return &GeminiClient{
		genaiClient:     gi,
		completionModel: cfg.CompletionModel,
		chatModel:       cfg.ChatModel,
		contentConfig:   baseCfg,
		retry: retrier{
			maxRetries: cfg.MaxRetries,
			delay:      cfg.RetryDelay,
			retriable:  geminiRetriable,
			log:        log,
		},
		log: log,
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "completion", c.completionModel, prompt, c.contentConfig)
}

func (c *GeminiClient) Chat(ctx context.Context, system, user string) (string, error) {
	cfg := *c.contentConfig
	cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	return c.generate(ctx, "chat completion", c.chatModel, user, &cfg)
}

func (c *GeminiClient) generate(ctx context.Context, op, model, text string, cfg *genai.GenerateContentConfig) (string, error) {
	return c.retry.do(ctx, op, func(ctx context.Context) (string, error) {
		resp, err := c.genaiClient.Models.GenerateContent(ctx, model, genai.Text(text), cfg)
		if err != nil {
			return "", err
		}
		return extractText(op, resp)
	})
}

// extractText returns the response text or explains why there is none.
func extractText(op string, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%s returned no response", op)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		return "", fmt.Errorf("%s blocked by safety filter: %s", op, reason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified &&
			resp.Candidates[0].FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("%s returned no content, finish reason: %v", op, resp.Candidates[0].FinishReason)
		}
		return "", fmt.Errorf("%s returned empty content", op)
	}
	return nonEmpty(op, resp.Text())
}

// geminiRetriable matches the transient HTTP codes of the Gemini API.
func geminiRetriable(err error) bool {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code == 500 || apiErr.Code == 503
	}
	return false
}

var _ Client = (*GeminiClient)(nil)
