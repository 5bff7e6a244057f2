package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edgard/adviserbot/internal/advice"
	"github.com/edgard/adviserbot/internal/config"
	apperrors "github.com/edgard/adviserbot/internal/errors"
	"github.com/edgard/adviserbot/internal/profile"
)

// CommandName identifies a slash command.
type CommandName string

const (
	CommandStart    CommandName = "start"
	CommandHelp     CommandName = "help"
	CommandAddTopic CommandName = "add_topic"
	CommandExit     CommandName = "exit"
	CommandProfile  CommandName = "profile"
)

// Command is an inbound slash command.
type Command struct {
	Name      CommandName
	UserID    int64
	FirstName string
}

// Deps are the collaborators of a Machine.
type Deps struct {
	Sessions   *SessionStore
	Store      profile.Store
	Advisor    Advisor
	Subscriber Subscriber
	Sender     Sender
	Messages   config.MessagesConfig
	Chat       config.ChatConfig
	Logger     *slog.Logger
}

// Machine maps commands, button presses and text messages plus the user's
// session to replies and a new session state.
type Machine struct {
	sessions     *SessionStore
	store        profile.Store
	advisor      Advisor
	subscriber   Subscriber
	sender       Sender
	msgs         config.MessagesConfig
	exitKeyword  string
	historyLimit int
	log          *slog.Logger
}

func NewMachine(d Deps) *Machine {
	sessions := d.Sessions
	if sessions == nil {
		sessions = NewSessionStore()
	}
	exitKeyword := d.Chat.ExitKeyword
	if exitKeyword == "" {
		exitKeyword = config.DefaultChatExitKeyword
	}
	historyLimit := d.Chat.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = config.DefaultChatHistoryLimit
	}

	return &Machine{
		sessions:     sessions,
		store:        d.Store,
		advisor:      d.Advisor,
		subscriber:   d.Subscriber,
		sender:       d.Sender,
		msgs:         d.Messages,
		exitKeyword:  exitKeyword,
		historyLimit: historyLimit,
		log:          d.Logger.With("component", "conversation"),
	}
}

// Sessions exposes the store the machine works on.
func (m *Machine) Sessions() *SessionStore {
	return m.sessions
}

func (m *Machine) HandleCommand(ctx context.Context, cmd Command) error {
	return m.sessions.With(cmd.UserID, func(s *Session) error {
		switch cmd.Name {
		case CommandStart:
			return m.start(ctx, s, cmd.FirstName)
		case CommandHelp:
			return m.send(ctx, s.UserID, Reply{Text: m.msgs.Help})
		case CommandAddTopic:
			return m.beginOnboarding(ctx, s)
		case CommandExit:
			return m.exit(ctx, s)
		case CommandProfile:
			return m.showProfile(ctx, s)
		default:
			return m.reject(ctx, s, apperrors.NewValidationError(fmt.Sprintf("unknown command %q", cmd.Name), nil))
		}
	})
}

func (m *Machine) HandleButton(ctx context.Context, userID int64, p Payload) error {
	return m.sessions.With(userID, func(s *Session) error {
		switch p.Action {
		case ActionAddTopic:
			return m.beginOnboarding(ctx, s)
		case ActionConfirm:
			return m.confirm(ctx, s)
		case ActionEdit:
			return m.chooseField(ctx, s)
		case ActionSelectField:
			return m.selectField(ctx, s, profile.Field(p.Value))
		case ActionSelectOption:
			return m.handleText(ctx, s, p.Value)
		default:
			return m.reject(ctx, s, apperrors.NewValidationError(fmt.Sprintf("unknown action %q", p.Action), nil))
		}
	})
}

func (m *Machine) HandleText(ctx context.Context, userID int64, text string) error {
	return m.sessions.With(userID, func(s *Session) error {
		return m.handleText(ctx, s, text)
	})
}

func (m *Machine) handleText(ctx context.Context, s *Session, text string) error {
	switch s.Mode() {
	case ModeOnboarding:
		return m.answer(ctx, s, text)
	case ModeEditing:
		return m.applyEdit(ctx, s, text)
	case ModeAwaitingConfirmation:
		return m.sendSummary(ctx, s)
	case ModeChatting:
		if strings.EqualFold(strings.TrimSpace(text), m.exitKeyword) {
			return m.exit(ctx, s)
		}
		return m.chat(ctx, s, text)
	default:
		return m.send(ctx, s.UserID, Reply{
			Text:    m.msgs.MenuPrompt,
			Buttons: []Button{{Label: m.msgs.AddTopicButton, Payload: AddTopic()}},
		})
	}
}

// start greets the user. Without a stored profile the questionnaire begins
// right away; a returning user gets the menu.
func (m *Machine) start(ctx context.Context, s *Session, firstName string) error {
	if err := s.reset(ctx); err != nil {
		return err
	}
	if firstName == "" {
		firstName = "there"
	}
	greeting := fmt.Sprintf(m.msgs.Welcome, firstName)

	p, err := m.store.GetProfile(ctx, s.UserID)
	if err != nil {
		m.log.WarnContext(ctx, "Profile lookup failed on start, showing menu", "user_id", s.UserID, "error", err)
	}
	if err == nil && p == nil {
		if err := m.send(ctx, s.UserID, Reply{Text: greeting}); err != nil {
			return err
		}
		return m.beginOnboarding(ctx, s)
	}

	return m.send(ctx, s.UserID, Reply{
		Text:    greeting + "\n\n" + m.msgs.MenuPrompt,
		Buttons: []Button{{Label: m.msgs.AddTopicButton, Payload: AddTopic()}},
	})
}

func (m *Machine) beginOnboarding(ctx context.Context, s *Session) error {
	if err := s.beginOnboarding(ctx); err != nil {
		return err
	}
	m.log.DebugContext(ctx, "Onboarding started", "user_id", s.UserID)
	return m.ask(ctx, s, profile.Fields[0])
}

// answer stores a questionnaire answer verbatim and moves to the next
// question or to the summary.
func (m *Machine) answer(ctx context.Context, s *Session, text string) error {
	q, ok := profile.QuestionAt(s.QuestionIndex)
	if !ok {
		m.log.WarnContext(ctx, "Question index out of range, resetting", "user_id", s.UserID, "index", s.QuestionIndex)
		s.QuestionIndex = 0
		return m.send(ctx, s.UserID, Reply{Text: m.msgs.OnboardingComplete})
	}

	s.Answers[q.Field] = text
	s.QuestionIndex++

	if next, ok := profile.QuestionAt(s.QuestionIndex); ok {
		return m.ask(ctx, s, next.Field)
	}

	if err := s.fire(ctx, eventAnswered); err != nil {
		return err
	}
	s.QuestionIndex = 0
	return m.sendSummary(ctx, s)
}

func (m *Machine) chooseField(ctx context.Context, s *Session) error {
	if s.Mode() != ModeAwaitingConfirmation {
		return m.reject(ctx, s, apperrors.NewInvalidTransition(fmt.Sprintf("edit is not allowed in mode %s", s.Mode())))
	}

	buttons := make([]Button, 0, len(profile.Fields))
	for _, f := range profile.Fields {
		q, _ := profile.QuestionFor(f)
		buttons = append(buttons, Button{Label: q.Label, Payload: SelectField(f)})
	}
	return m.send(ctx, s.UserID, Reply{Text: m.msgs.ChooseField, Buttons: buttons})
}

func (m *Machine) selectField(ctx context.Context, s *Session, f profile.Field) error {
	if _, ok := profile.QuestionFor(f); !ok {
		return m.reject(ctx, s, apperrors.NewValidationError(fmt.Sprintf("unknown field %q", f), nil))
	}
	if err := s.fire(ctx, eventSelectField); err != nil {
		return m.reject(ctx, s, err)
	}
	s.EditingField = f
	return m.ask(ctx, s, f)
}

func (m *Machine) applyEdit(ctx context.Context, s *Session, text string) error {
	s.Answers[s.EditingField] = text
	if err := s.fire(ctx, eventEdited); err != nil {
		return err
	}
	s.EditingField = ""
	return m.sendSummary(ctx, s)
}

// confirm persists the answers and subscribes the user. On any failure the
// session stays in AwaitingConfirmation so the user can retry.
func (m *Machine) confirm(ctx context.Context, s *Session) error {
	if s.Mode() != ModeAwaitingConfirmation {
		return m.reject(ctx, s, apperrors.NewInvalidTransition(fmt.Sprintf("confirm is not allowed in mode %s", s.Mode())))
	}

	p, err := profile.FromAnswers(s.UserID, s.Answers)
	if err != nil {
		m.log.InfoContext(ctx, "Rejected incomplete profile", "user_id", s.UserID, "error", err)
		if sendErr := m.send(ctx, s.UserID, Reply{
			Text:    fmt.Sprintf(m.msgs.InvalidProfile, reason(err)),
			Buttons: []Button{{Label: m.msgs.EditButton, Payload: Edit()}},
		}); sendErr != nil {
			return sendErr
		}
		return err
	}

	if err := m.store.UpsertProfile(ctx, p); err != nil {
		m.log.ErrorContext(ctx, "Failed to persist profile", "user_id", s.UserID, "error", err)
		if sendErr := m.send(ctx, s.UserID, Reply{
			Text:    m.msgs.SaveFailed,
			Buttons: []Button{{Label: m.msgs.ConfirmButton, Payload: Confirm()}},
		}); sendErr != nil {
			return sendErr
		}
		return err
	}

	if err := s.fire(ctx, eventConfirm); err != nil {
		return err
	}
	s.Answers = profile.Answers{}
	s.History = nil

	m.log.InfoContext(ctx, "Profile confirmed", "user_id", s.UserID, "frequency", p.Frequency)

	// The profile is saved either way; a missing task is recreated by the
	// periodic reconcile.
	subErr := m.subscriber.Subscribe(ctx, s.UserID)
	text := m.msgs.Confirmed
	if subErr != nil {
		m.log.ErrorContext(ctx, "Failed to start advice delivery", "user_id", s.UserID, "error", subErr)
		text = m.msgs.SubscribeFailed
	}

	if err := m.send(ctx, s.UserID, Reply{Text: text, RemoveKeyboard: true}); err != nil {
		return err
	}
	return subErr
}

// chat answers a message in chat mode. A failed answer leaves the history
// as it was before the message.
func (m *Machine) chat(ctx context.Context, s *Session, text string) error {
	p, err := m.store.GetProfile(ctx, s.UserID)
	if err != nil {
		m.log.ErrorContext(ctx, "Failed to load profile for chat", "user_id", s.UserID, "error", err)
		return errors.Join(err, m.send(ctx, s.UserID, Reply{Text: m.msgs.GeneralError}))
	}
	if p == nil {
		if err := s.reset(ctx); err != nil {
			return err
		}
		return m.send(ctx, s.UserID, Reply{Text: m.msgs.ProfileNotFound})
	}

	prior := s.History
	s.appendTurn(advice.Turn{Role: advice.RoleUser, Content: text}, m.historyLimit)

	reply, err := m.advisor.Answer(ctx, p, text, s.History)
	if err != nil {
		s.History = prior
		m.log.WarnContext(ctx, "Chat answer failed", "user_id", s.UserID, "error", err)
		return errors.Join(err, m.send(ctx, s.UserID, Reply{Text: m.msgs.ChatFailed}))
	}

	s.appendTurn(advice.Turn{Role: advice.RoleAssistant, Content: reply}, m.historyLimit)
	return m.send(ctx, s.UserID, Reply{Text: reply})
}

func (m *Machine) exit(ctx context.Context, s *Session) error {
	if err := s.reset(ctx); err != nil {
		return err
	}
	return m.send(ctx, s.UserID, Reply{Text: m.msgs.ExitChat, RemoveKeyboard: true})
}

func (m *Machine) showProfile(ctx context.Context, s *Session) error {
	p, err := m.store.GetProfile(ctx, s.UserID)
	if err != nil {
		m.log.ErrorContext(ctx, "Failed to load profile", "user_id", s.UserID, "error", err)
		return errors.Join(err, m.send(ctx, s.UserID, Reply{Text: m.msgs.GeneralError}))
	}
	if p == nil {
		return m.send(ctx, s.UserID, Reply{Text: m.msgs.ProfileNotFound})
	}
	return m.send(ctx, s.UserID, Reply{Text: m.msgs.ProfileHeader + "\n\n" + p.Answers().Summary()})
}

// ask sends the question for f with its option keyboard, if any.
func (m *Machine) ask(ctx context.Context, s *Session, f profile.Field) error {
	q, ok := profile.QuestionFor(f)
	if !ok {
		return apperrors.NewValidationError(fmt.Sprintf("no question for field %q", f), nil)
	}
	return m.send(ctx, s.UserID, Reply{
		Text:           q.Prompt,
		Options:        q.Options,
		RemoveKeyboard: len(q.Options) == 0,
	})
}

func (m *Machine) sendSummary(ctx context.Context, s *Session) error {
	return m.send(ctx, s.UserID, Reply{
		Text: m.msgs.SummaryHeader + "\n\n" + s.Answers.Summary(),
		Buttons: []Button{
			{Label: m.msgs.ConfirmButton, Payload: Confirm()},
			{Label: m.msgs.EditButton, Payload: Edit()},
		},
	})
}

// reject tells the user the event was not understood and returns err.
func (m *Machine) reject(ctx context.Context, s *Session, err error) error {
	m.log.InfoContext(ctx, "Rejected event", "user_id", s.UserID, "mode", s.Mode(), "error", err)
	return errors.Join(err, m.send(ctx, s.UserID, Reply{Text: m.msgs.UnknownAction}))
}

func (m *Machine) send(ctx context.Context, userID int64, r Reply) error {
	if err := m.sender.Send(ctx, userID, r); err != nil {
		m.log.ErrorContext(ctx, "Failed to send reply", "user_id", userID, "error", err)
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// reason is the user-facing part of a validation error.
func reason(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	return "invalid answers"
}
