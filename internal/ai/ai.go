// Package ai wraps the text generation backends behind one small client.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/adviserbot/internal/config"
	"github.com/edgard/adviserbot/internal/resilience"
)

// Client produces text from a prompt or from a system/user message pair.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, system, user string) (string, error)
}

// New returns the client for cfg.Provider. Unless cfg.BreakerFailures is
// zero, calls go through a circuit breaker.
func New(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (Client, error) {
	var (
		client Client
		err    error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		client, err = NewOpenAIClient(cfg, logger)
	case config.ProviderGemini:
		client, err = NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
	if err != nil || cfg.BreakerFailures <= 0 {
		return client, err
	}

	return Guard(client, resilience.NewBreaker(resilience.BreakerConfig{
		Name:        "ai:" + cfg.Provider,
		MaxFailures: cfg.BreakerFailures,
		Cooldown:    cfg.BreakerCooldown,
		Logger:      logger,
	})), nil
}

// Guard routes every call of next through breaker.
func Guard(next Client, breaker *resilience.Breaker) Client {
	return guardedClient{next: next, breaker: breaker}
}

type guardedClient struct {
	next    Client
	breaker *resilience.Breaker
}

func (g guardedClient) Complete(ctx context.Context, prompt string) (string, error) {
	var out string
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.next.Complete(ctx, prompt)
		return err
	})
	return out, err
}

func (g guardedClient) Chat(ctx context.Context, system, user string) (string, error) {
	var out string
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.next.Chat(ctx, system, user)
		return err
	})
	return out, err
}

// retrier re-runs a call while it fails with a retriable error.
type retrier struct {
	maxRetries int
	delay      time.Duration
	retriable  func(error) bool
	log        *slog.Logger
}

func (r retrier) do(ctx context.Context, op string, call func(context.Context) (string, error)) (string, error) {
	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		var out string
		out, err = call(ctx)
		if err == nil {
			return out, nil
		}
		if !r.retriable(err) || attempt == r.maxRetries {
			break
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		r.log.WarnContext(ctx, "AI call failed, retrying", "operation", op, "attempt", attempt+1, "max_retries", r.maxRetries, "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.delay):
		}
	}
	return "", fmt.Errorf("%s failed: %w", op, err)
}

func nonEmpty(op, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s returned empty content", op)
	}
	return text, nil
}
