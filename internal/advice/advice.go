// Package advice generates scheduled advice and chat answers by chaining a
// text completion, a web search and a chat completion.
package advice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/edgard/adviserbot/internal/errors"
	"github.com/edgard/adviserbot/internal/profile"
	"github.com/edgard/adviserbot/internal/search"
	"github.com/edgard/adviserbot/internal/text"
)

// Completer runs a plain text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChatCompleter runs a completion with a system and a user message.
type ChatCompleter interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Searcher finds recent web material for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a chat history.
type Turn struct {
	Role    Role
	Content string
}

// DefaultHistoryBudget bounds the tokens of prior turns embedded in a chat prompt.
const DefaultHistoryBudget = 1500

// Generator produces advice and chat answers.
type Generator struct {
	completer     Completer
	chat          ChatCompleter
	searcher      Searcher
	historyBudget int
	log           *slog.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithHistoryBudget sets the token budget for prior turns in chat prompts.
func WithHistoryBudget(tokens int) Option {
	return func(g *Generator) {
		if tokens > 0 {
			g.historyBudget = tokens
		}
	}
}

func NewGenerator(completer Completer, chat ChatCompleter, searcher Searcher, logger *slog.Logger, opts ...Option) *Generator {
	g := &Generator{
		completer:     completer,
		chat:          chat,
		searcher:      searcher,
		historyBudget: DefaultHistoryBudget,
		log:           logger.With("component", "advice"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateAdvice derives a category for the profile, searches for recent
// developments in it and asks the chat model for advice. Every failure is a
// generation failure.
func (g *Generator) CreateAdvice(ctx context.Context, p *profile.Profile) (string, error) {
	if p == nil {
		return "", apperrors.NewGenerationFailure("no profile to generate advice for", nil)
	}

	category, err := g.completer.Complete(ctx, fmt.Sprintf(CategoryPrompt, p.Topic, p.Description, p.Level))
	if err != nil {
		return "", apperrors.NewGenerationFailure("failed to derive advice category", err)
	}
	category = cleanCategory(category)
	if category == "" {
		return "", apperrors.NewGenerationFailure("advice category is empty", nil)
	}

	results, err := g.searcher.Search(ctx, fmt.Sprintf(SearchQueryTemplate, category, p.Topic))
	if err != nil {
		return "", apperrors.NewGenerationFailure("failed to search for recent developments", err)
	}

	prompt := fmt.Sprintf(AdviceUserPrompt, p.Topic, p.Description, p.Level, category, search.Format(results))
	out, err := g.chat.Chat(ctx, AdviceSystemPrompt, prompt)
	if err != nil {
		return "", apperrors.NewGenerationFailure("failed to generate advice", err)
	}

	advice := text.Clean(out)
	if advice == "" {
		return "", apperrors.NewGenerationFailure("generated advice is empty", nil)
	}

	g.log.DebugContext(ctx, "Advice generated", "user_id", p.UserID, "category", category, "search_results", len(results))
	return advice, nil
}

// Answer replies to query in the profile's persona voice, using a web
// search on the query and topic plus as much recent history as fits.
func (g *Generator) Answer(ctx context.Context, p *profile.Profile, query string, history []Turn) (string, error) {
	if p == nil {
		return "", apperrors.NewGenerationFailure("no profile to answer for", nil)
	}

	system, err := PersonaPrompt(p)
	if err != nil {
		return "", err
	}

	results, err := g.searcher.Search(ctx, strings.TrimSpace(query+" "+p.Topic))
	if err != nil {
		return "", apperrors.NewGenerationFailure("failed to search for chat context", err)
	}

	prompt := fmt.Sprintf(ChatUserPrompt, search.Format(results), g.formatHistory(history), query)
	out, err := g.chat.Chat(ctx, system, prompt)
	if err != nil {
		return "", apperrors.NewGenerationFailure("failed to generate chat answer", err)
	}

	answer := text.Clean(out)
	if answer == "" {
		return "", apperrors.NewGenerationFailure("generated chat answer is empty", nil)
	}
	return answer, nil
}

// PersonaPrompt fills the fixed template selected by the profile persona.
func PersonaPrompt(p *profile.Profile) (string, error) {
	tmpl, ok := personaTemplates[p.Persona]
	if !ok {
		return "", apperrors.NewGenerationFailure(fmt.Sprintf("unknown persona %q", p.Persona), nil)
	}
	return fmt.Sprintf(tmpl, p.Name, p.Topic, p.Description, p.Level), nil
}

func (g *Generator) formatHistory(history []Turn) string {
	if len(history) == 0 {
		return "(none)"
	}

	lines := make([]string, len(history))
	for i, t := range history {
		lines[i] = fmt.Sprintf("%s: %s", t.Role, t.Content)
	}
	return strings.Join(lines[text.TailStart(lines, g.historyBudget):], "\n")
}

// cleanCategory keeps the first non-empty line without quotes or a trailing dot.
func cleanCategory(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"'.`)
		if line != "" {
			return strings.TrimSpace(strings.TrimPrefix(line, "Category:"))
		}
	}
	return ""
}
