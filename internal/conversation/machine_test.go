package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/edgard/adviserbot/internal/advice"
	"github.com/edgard/adviserbot/internal/config"
	apperrors "github.com/edgard/adviserbot/internal/errors"
	"github.com/edgard/adviserbot/internal/profile"
)

type sentReply struct {
	userID int64
	reply  Reply
}

type fakeSender struct {
	mu      sync.Mutex
	replies []sentReply
	err     error
}

func (f *fakeSender) Send(_ context.Context, userID int64, r Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, sentReply{userID, r})
	return f.err
}

func (f *fakeSender) last(t *testing.T) Reply {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		t.Fatal("no reply sent")
	}
	return f.replies[len(f.replies)-1].reply
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies)
}

type memStore struct {
	mu        sync.Mutex
	profiles  map[int64]*profile.Profile
	upsertErr error
	getErr    error
	upserts   int
}

func newMemStore() *memStore {
	return &memStore{profiles: make(map[int64]*profile.Profile)}
}

func (s *memStore) GetProfile(_ context.Context, userID int64) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) UpsertProfile(_ context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	cp := *p
	s.profiles[p.UserID] = &cp
	s.upserts++
	return nil
}

func (s *memStore) ListProfiles(context.Context) ([]*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*profile.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

type fakeAdvisor struct {
	mu       sync.Mutex
	reply    string
	err      error
	queries  []string
	lastHist []advice.Turn
}

func (f *fakeAdvisor) Answer(_ context.Context, _ *profile.Profile, query string, history []advice.Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.lastHist = append([]advice.Turn(nil), history...)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "re: " + query, nil
}

type fakeSubscriber struct {
	mu    sync.Mutex
	calls map[int64]int
	err   error
}

func (f *fakeSubscriber) Subscribe(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[int64]int)
	}
	f.calls[userID]++
	return f.err
}

type harness struct {
	machine    *Machine
	sender     *fakeSender
	store      *memStore
	advisor    *fakeAdvisor
	subscriber *fakeSubscriber
}

func newHarness(historyLimit int) *harness {
	h := &harness{
		sender:     &fakeSender{},
		store:      newMemStore(),
		advisor:    &fakeAdvisor{},
		subscriber: &fakeSubscriber{},
	}
	h.machine = NewMachine(Deps{
		Store:      h.store,
		Advisor:    h.advisor,
		Subscriber: h.subscriber,
		Sender:     h.sender,
		Messages:   config.DefaultMessages,
		Chat:       config.ChatConfig{HistoryLimit: historyLimit, ExitKeyword: "exit"},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return h
}

var fullAnswers = []string{"Alex", "AI", "latest AI tools", "3", "Female", "Beginner"}

func (h *harness) onboard(t *testing.T, userID int64, answers []string) {
	t.Helper()
	ctx := context.Background()
	if err := h.machine.HandleButton(ctx, userID, AddTopic()); err != nil {
		t.Fatalf("AddTopic: %v", err)
	}
	for _, a := range answers {
		if err := h.machine.HandleText(ctx, userID, a); err != nil {
			t.Fatalf("answer %q: %v", a, err)
		}
	}
}

const wantSummary = "Please check your answers:\n\n" +
	"Name: Alex\nTopic: AI\nDescription: latest AI tools\nFrequency: 3\nPersona: Female\nLevel: Beginner"

func TestOnboardingAsksQuestionsInOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	ctx := context.Background()

	if err := h.machine.HandleButton(ctx, 1, AddTopic()); err != nil {
		t.Fatalf("AddTopic: %v", err)
	}
	first := h.sender.last(t)
	if first.Text != "What nickname or name should I use to address you?" || len(first.Options) != 0 {
		t.Fatalf("first question = %+v", first)
	}
	if h.machine.Sessions().Mode(1) != ModeOnboarding {
		t.Fatalf("mode = %s, want Onboarding", h.machine.Sessions().Mode(1))
	}

	if err := h.machine.HandleText(ctx, 1, "Alex"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	topic := h.sender.last(t)
	if topic.Text != "Which topic are you interested in?" || strings.Join(topic.Options, ",") != strings.Join(profile.TopicOptions, ",") {
		t.Errorf("topic question = %+v", topic)
	}

	if err := h.machine.HandleText(ctx, 1, "AI"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	desc := h.sender.last(t)
	if len(desc.Options) != 0 || !desc.RemoveKeyboard {
		t.Errorf("description question should be free text: %+v", desc)
	}
}

func TestFullFlowSubscribesOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	ctx := context.Background()
	h.onboard(t, 1, fullAnswers)

	summary := h.sender.last(t)
	if summary.Text != wantSummary {
		t.Fatalf("summary = %q, want %q", summary.Text, wantSummary)
	}
	if len(summary.Buttons) != 2 || summary.Buttons[0].Payload != Confirm() || summary.Buttons[1].Payload != Edit() {
		t.Fatalf("summary buttons = %+v", summary.Buttons)
	}
	if h.machine.Sessions().Mode(1) != ModeAwaitingConfirmation {
		t.Fatalf("mode = %s", h.machine.Sessions().Mode(1))
	}

	if err := h.machine.HandleButton(ctx, 1, Confirm()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if h.machine.Sessions().Mode(1) != ModeChatting {
		t.Fatalf("mode after confirm = %s", h.machine.Sessions().Mode(1))
	}
	want := &profile.Profile{
		UserID: 1, Name: "Alex", Topic: "AI", Description: "latest AI tools",
		Frequency: 3, Persona: profile.PersonaFemale, Level: profile.LevelBeginner,
	}
	got, _ := h.store.GetProfile(ctx, 1)
	if got == nil || *got != *want {
		t.Fatalf("stored profile = %+v, want %+v", got, want)
	}
	if h.subscriber.calls[1] != 1 {
		t.Fatalf("subscribe calls = %d, want 1", h.subscriber.calls[1])
	}

	err := h.machine.HandleButton(ctx, 1, Confirm())
	if !apperrors.IsInvalidTransition(err) {
		t.Errorf("second Confirm error = %v, want invalid transition", err)
	}
	if h.subscriber.calls[1] != 1 {
		t.Errorf("second Confirm subscribed again")
	}
	if h.machine.Sessions().Mode(1) != ModeChatting {
		t.Errorf("second Confirm changed mode to %s", h.machine.Sessions().Mode(1))
	}
}

func TestEditFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	ctx := context.Background()
	h.onboard(t, 1, fullAnswers)

	if err := h.machine.HandleButton(ctx, 1, Edit()); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	menu := h.sender.last(t)
	if len(menu.Buttons) != len(profile.Fields) {
		t.Fatalf("field menu = %+v", menu)
	}
	for i, f := range profile.Fields {
		if menu.Buttons[i].Payload != SelectField(f) {
			t.Errorf("button %d payload = %+v, want %s", i, menu.Buttons[i].Payload, f)
		}
	}
	if h.machine.Sessions().Mode(1) != ModeAwaitingConfirmation {
		t.Errorf("field menu changed mode to %s", h.machine.Sessions().Mode(1))
	}

	if err := h.machine.HandleButton(ctx, 1, SelectField(profile.FieldTopic)); err != nil {
		t.Fatalf("SelectField: %v", err)
	}
	q := h.sender.last(t)
	if q.Text != "Which topic are you interested in?" || len(q.Options) != len(profile.TopicOptions) {
		t.Errorf("re-asked question = %+v", q)
	}
	if h.machine.Sessions().Mode(1) != ModeEditing {
		t.Fatalf("mode = %s, want Editing", h.machine.Sessions().Mode(1))
	}

	if err := h.machine.HandleButton(ctx, 1, SelectOption("Crypto")); err != nil {
		t.Fatalf("SelectOption: %v", err)
	}
	summary := h.sender.last(t)
	if want := strings.Replace(wantSummary, "Topic: AI", "Topic: Crypto", 1); summary.Text != want {
		t.Errorf("summary after edit = %q, want %q", summary.Text, want)
	}
	if h.machine.Sessions().Mode(1) != ModeAwaitingConfirmation {
		t.Errorf("mode after edit = %s", h.machine.Sessions().Mode(1))
	}
	_ = h.machine.Sessions().With(1, func(s *Session) error {
		if s.EditingField != "" {
			t.Errorf("editing field not cleared: %s", s.EditingField)
		}
		return nil
	})
}

func TestEditIdempotence(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	ctx := context.Background()
	h.onboard(t, 1, fullAnswers)

	if err := h.machine.HandleButton(ctx, 1, Edit()); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if err := h.machine.HandleButton(ctx, 1, SelectField(profile.FieldLevel)); err != nil {
		t.Fatalf("SelectField: %v", err)
	}
	if err := h.machine.HandleText(ctx, 1, "Beginner"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if got := h.sender.last(t).Text; got != wantSummary {
		t.Errorf("re-entering the same value changed the summary: %q", got)
	}
}

func TestRejectedEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T, h *harness)
		payload Payload
	}{
		{name: "confirm while idle", setup: func(*testing.T, *harness) {}, payload: Confirm()},
		{name: "edit while idle", setup: func(*testing.T, *harness) {}, payload: Edit()},
		{
			name:    "select field while onboarding",
			setup:   func(t *testing.T, h *harness) { h.onboard(t, 1, fullAnswers[:2]) },
			payload: SelectField(profile.FieldName),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(0)
			tt.setup(t, h)
			before := h.machine.Sessions().Mode(1)

			err := h.machine.HandleButton(context.Background(), 1, tt.payload)
			if !apperrors.IsInvalidTransition(err) {
				t.Errorf("error = %v, want invalid transition", err)
			}
			if got := h.machine.Sessions().Mode(1); got != before {
				t.Errorf("mode changed from %s to %s", before, got)
			}
			if h.sender.last(t).Text != config.DefaultMessages.UnknownAction {
				t.Errorf("reply = %q", h.sender.last(t).Text)
			}
		})
	}
}

func TestConfirmFailures(t *testing.T) {
	t.Parallel()

	t.Run("store unavailable", func(t *testing.T) {
		t.Parallel()

		h := newHarness(0)
		h.onboard(t, 1, fullAnswers)
		h.store.upsertErr = apperrors.NewStoreUnavailable("db down", errors.New("io"))

		err := h.machine.HandleButton(context.Background(), 1, Confirm())
		if !apperrors.IsStoreUnavailable(err) {
			t.Fatalf("error = %v, want store unavailable", err)
		}
		if h.machine.Sessions().Mode(1) != ModeAwaitingConfirmation {
			t.Errorf("mode = %s, want AwaitingConfirmation", h.machine.Sessions().Mode(1))
		}
		if h.sender.last(t).Text != config.DefaultMessages.SaveFailed {
			t.Errorf("reply = %q", h.sender.last(t).Text)
		}
		if len(h.subscriber.calls) != 0 {
			t.Error("subscribed despite failed persist")
		}

		h.store.upsertErr = nil
		if err := h.machine.HandleButton(context.Background(), 1, Confirm()); err != nil {
			t.Fatalf("retry Confirm: %v", err)
		}
		if h.machine.Sessions().Mode(1) != ModeChatting {
			t.Errorf("retry did not reach Chatting")
		}
	})

	t.Run("subscription fails", func(t *testing.T) {
		t.Parallel()

		h := newHarness(0)
		h.onboard(t, 1, fullAnswers)
		h.subscriber.err = apperrors.NewStoreUnavailable("db down", errors.New("io"))
		before := h.sender.count()

		err := h.machine.HandleButton(context.Background(), 1, Confirm())
		if !apperrors.IsStoreUnavailable(err) {
			t.Fatalf("error = %v, want store unavailable", err)
		}
		if h.store.upserts != 1 {
			t.Errorf("upserts = %d, want the profile saved", h.store.upserts)
		}
		if mode := h.machine.Sessions().Mode(1); mode != ModeChatting {
			t.Errorf("mode = %s, want Chatting", mode)
		}
		if n := h.sender.count() - before; n != 1 {
			t.Fatalf("got %d replies after Confirm, want 1", n)
		}
		reply := h.sender.last(t)
		if reply.Text != config.DefaultMessages.SubscribeFailed {
			t.Errorf("reply = %q, want the delayed delivery notice", reply.Text)
		}
		if !reply.RemoveKeyboard {
			t.Error("reply keeps the option keyboard")
		}
	})

	t.Run("unparseable frequency", func(t *testing.T) {
		t.Parallel()

		h := newHarness(0)
		answers := append([]string(nil), fullAnswers...)
		answers[3] = "often"
		h.onboard(t, 1, answers)

		err := h.machine.HandleButton(context.Background(), 1, Confirm())
		if !apperrors.IsValidation(err) {
			t.Fatalf("error = %v, want validation error", err)
		}
		if h.store.upserts != 0 {
			t.Error("invalid profile was persisted")
		}
		reply := h.sender.last(t)
		if !strings.Contains(reply.Text, `frequency "often" is not a number`) {
			t.Errorf("reply = %q", reply.Text)
		}
		if h.machine.Sessions().Mode(1) != ModeAwaitingConfirmation {
			t.Errorf("mode = %s", h.machine.Sessions().Mode(1))
		}
	})
}

func TestReconfirmationUpdatesProfile(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	h.onboard(t, 1, fullAnswers)
	if err := h.machine.HandleButton(context.Background(), 1, Confirm()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	changed := append([]string(nil), fullAnswers...)
	changed[3] = "6"
	h.onboard(t, 1, changed)
	if err := h.machine.HandleButton(context.Background(), 1, Confirm()); err != nil {
		t.Fatalf("second Confirm: %v", err)
	}

	p, _ := h.store.GetProfile(context.Background(), 1)
	if p.Frequency != 6 {
		t.Errorf("frequency = %d, want 6", p.Frequency)
	}
	if h.subscriber.calls[1] != 2 {
		t.Errorf("subscribe calls = %d, want 2", h.subscriber.calls[1])
	}
}

func TestChatting(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	ctx := context.Background()
	h.onboard(t, 1, fullAnswers)
	if err := h.machine.HandleButton(ctx, 1, Confirm()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if err := h.machine.HandleText(ctx, 1, "what should I read?"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if got := h.sender.last(t).Text; got != "re: what should I read?" {
		t.Errorf("chat reply = %q", got)
	}
	if len(h.advisor.lastHist) != 1 || h.advisor.lastHist[0] != (advice.Turn{Role: advice.RoleUser, Content: "what should I read?"}) {
		t.Errorf("history passed to advisor = %+v", h.advisor.lastHist)
	}

	if err := h.machine.HandleText(ctx, 1, "and then?"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	want := []advice.Turn{
		{Role: advice.RoleUser, Content: "what should I read?"},
		{Role: advice.RoleAssistant, Content: "re: what should I read?"},
		{Role: advice.RoleUser, Content: "and then?"},
	}
	if fmt.Sprint(h.advisor.lastHist) != fmt.Sprint(want) {
		t.Errorf("history = %+v, want %+v", h.advisor.lastHist, want)
	}

	if err := h.machine.HandleText(ctx, 1, " EXIT "); err != nil {
		t.Fatalf("exit: %v", err)
	}
	if h.machine.Sessions().Mode(1) != ModeIdle {
		t.Errorf("mode after exit = %s", h.machine.Sessions().Mode(1))
	}
	if got := h.sender.last(t); got.Text != config.DefaultMessages.ExitChat || !got.RemoveKeyboard {
		t.Errorf("exit reply = %+v", got)
	}
	if len(h.advisor.queries) != 2 {
		t.Errorf("exit keyword reached the advisor")
	}
}

func TestChatFailureKeepsHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	ctx := context.Background()
	h.onboard(t, 1, fullAnswers)
	if err := h.machine.HandleButton(ctx, 1, Confirm()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := h.machine.HandleText(ctx, 1, "first"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	h.advisor.err = apperrors.NewGenerationFailure("model down", nil)
	err := h.machine.HandleText(ctx, 1, "second")
	if !apperrors.IsGenerationFailure(err) {
		t.Fatalf("error = %v, want generation failure", err)
	}
	if h.sender.last(t).Text != config.DefaultMessages.ChatFailed {
		t.Errorf("reply = %q", h.sender.last(t).Text)
	}

	_ = h.machine.Sessions().With(1, func(s *Session) error {
		if len(s.History) != 2 || s.History[1].Role != advice.RoleAssistant {
			t.Errorf("history after failure = %+v", s.History)
		}
		return nil
	})
	if h.machine.Sessions().Mode(1) != ModeChatting {
		t.Errorf("mode = %s, want Chatting", h.machine.Sessions().Mode(1))
	}
}

func TestChatHistoryWindow(t *testing.T) {
	t.Parallel()

	h := newHarness(4)
	ctx := context.Background()
	h.onboard(t, 1, fullAnswers)
	if err := h.machine.HandleButton(ctx, 1, Confirm()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	for i := range 5 {
		if err := h.machine.HandleText(ctx, 1, fmt.Sprintf("q%d", i)); err != nil {
			t.Fatalf("HandleText: %v", err)
		}
	}

	_ = h.machine.Sessions().With(1, func(s *Session) error {
		if len(s.History) != 4 {
			t.Fatalf("history length = %d, want 4", len(s.History))
		}
		if s.History[0].Content != "q3" || s.History[3].Content != "re: q4" {
			t.Errorf("history = %+v", s.History)
		}
		return nil
	})
}

func TestChatWithoutStoredProfile(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	ctx := context.Background()
	h.onboard(t, 1, fullAnswers)
	if err := h.machine.HandleButton(ctx, 1, Confirm()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	delete(h.store.profiles, 1)

	if err := h.machine.HandleText(ctx, 1, "hello"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if h.sender.last(t).Text != config.DefaultMessages.ProfileNotFound {
		t.Errorf("reply = %q", h.sender.last(t).Text)
	}
	if h.machine.Sessions().Mode(1) != ModeIdle {
		t.Errorf("mode = %s, want Idle", h.machine.Sessions().Mode(1))
	}
}

func TestIdleTextPromptsMenu(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	if err := h.machine.HandleText(context.Background(), 1, "hello?"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	reply := h.sender.last(t)
	if reply.Text != config.DefaultMessages.MenuPrompt || len(reply.Buttons) != 1 || reply.Buttons[0].Payload != AddTopic() {
		t.Errorf("reply = %+v", reply)
	}
	if h.machine.Sessions().Mode(1) != ModeIdle {
		t.Errorf("mode = %s", h.machine.Sessions().Mode(1))
	}
}

func TestOutOfRangeQuestionIndexResets(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	ctx := context.Background()
	if err := h.machine.HandleButton(ctx, 1, AddTopic()); err != nil {
		t.Fatalf("AddTopic: %v", err)
	}
	_ = h.machine.Sessions().With(1, func(s *Session) error {
		s.QuestionIndex = 42
		return nil
	})

	if err := h.machine.HandleText(ctx, 1, "anything"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if h.sender.last(t).Text != config.DefaultMessages.OnboardingComplete {
		t.Errorf("reply = %q", h.sender.last(t).Text)
	}
	_ = h.machine.Sessions().With(1, func(s *Session) error {
		if s.QuestionIndex != 0 {
			t.Errorf("index = %d, want 0", s.QuestionIndex)
		}
		if _, stored := s.Answers[profile.FieldName]; stored {
			t.Error("answer stored for out-of-range index")
		}
		return nil
	})
}

func TestAnswersStoredVerbatim(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	h.onboard(t, 1, []string{"", "  Space Travel  "})
	_ = h.machine.Sessions().With(1, func(s *Session) error {
		if s.Answers[profile.FieldName] != "" || s.Answers[profile.FieldTopic] != "  Space Travel  " {
			t.Errorf("answers = %+v", s.Answers)
		}
		return nil
	})
}

func TestCommands(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	ctx := context.Background()

	if err := h.machine.HandleCommand(ctx, Command{Name: CommandStart, UserID: 1, FirstName: "Alex"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if h.sender.count() != 2 {
		t.Fatalf("start sent %d replies, want greeting and first question", h.sender.count())
	}
	if greeting := h.sender.replies[0].reply; !strings.Contains(greeting.Text, "Hello, Alex!") {
		t.Errorf("greeting = %+v", greeting)
	}
	if q, _ := profile.QuestionAt(0); h.sender.last(t).Text != q.Prompt {
		t.Errorf("after start got %q, want the name question", h.sender.last(t).Text)
	}
	if h.machine.Sessions().Mode(1) != ModeOnboarding {
		t.Errorf("mode after /start = %s, want Onboarding", h.machine.Sessions().Mode(1))
	}

	if err := h.machine.HandleCommand(ctx, Command{Name: CommandHelp, UserID: 1}); err != nil {
		t.Fatalf("help: %v", err)
	}
	if h.sender.last(t).Text != config.DefaultMessages.Help {
		t.Errorf("help reply = %q", h.sender.last(t).Text)
	}

	if err := h.machine.HandleCommand(ctx, Command{Name: CommandProfile, UserID: 1}); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if h.sender.last(t).Text != config.DefaultMessages.ProfileNotFound {
		t.Errorf("profile reply = %q", h.sender.last(t).Text)
	}

	if err := h.machine.HandleCommand(ctx, Command{Name: CommandAddTopic, UserID: 1}); err != nil {
		t.Fatalf("add_topic: %v", err)
	}
	if h.machine.Sessions().Mode(1) != ModeOnboarding {
		t.Errorf("mode after /add_topic = %s", h.machine.Sessions().Mode(1))
	}

	if err := h.machine.HandleCommand(ctx, Command{Name: CommandExit, UserID: 1}); err != nil {
		t.Fatalf("exit: %v", err)
	}
	if h.machine.Sessions().Mode(1) != ModeIdle {
		t.Errorf("mode after /exit = %s", h.machine.Sessions().Mode(1))
	}

	err := h.machine.HandleCommand(ctx, Command{Name: "dance", UserID: 1})
	if !apperrors.IsValidation(err) {
		t.Errorf("unknown command error = %v", err)
	}
}

func TestStartForReturningUserShowsMenu(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	ctx := context.Background()
	h.onboard(t, 1, fullAnswers)
	if err := h.machine.HandleButton(ctx, 1, Confirm()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if err := h.machine.HandleCommand(ctx, Command{Name: CommandStart, UserID: 1, FirstName: "Alex"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	reply := h.sender.last(t)
	if !strings.Contains(reply.Text, "Hello, Alex!") || len(reply.Buttons) != 1 || reply.Buttons[0].Payload != AddTopic() {
		t.Errorf("reply = %+v, want greeting with the Add Topic button", reply)
	}
	if h.machine.Sessions().Mode(1) != ModeIdle {
		t.Errorf("mode = %s, want Idle", h.machine.Sessions().Mode(1))
	}
}

func TestProfileCommandShowsStoredProfile(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	h.onboard(t, 1, fullAnswers)
	if err := h.machine.HandleButton(context.Background(), 1, Confirm()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := h.machine.HandleCommand(context.Background(), Command{Name: CommandProfile, UserID: 1}); err != nil {
		t.Fatalf("profile: %v", err)
	}
	want := "Your profile:\n\n" + strings.TrimPrefix(wantSummary, "Please check your answers:\n\n")
	if got := h.sender.last(t).Text; got != want {
		t.Errorf("profile reply = %q, want %q", got, want)
	}
}

func TestUsersAreIndependent(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	var wg sync.WaitGroup
	for id := int64(1); id <= 20; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			ctx := context.Background()
			if err := h.machine.HandleButton(ctx, id, AddTopic()); err != nil {
				t.Errorf("AddTopic(%d): %v", id, err)
			}
			for _, a := range fullAnswers {
				if err := h.machine.HandleText(ctx, id, a); err != nil {
					t.Errorf("answer(%d): %v", id, err)
				}
			}
			if err := h.machine.HandleButton(ctx, id, Confirm()); err != nil {
				t.Errorf("Confirm(%d): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	for id := int64(1); id <= 20; id++ {
		if h.machine.Sessions().Mode(id) != ModeChatting {
			t.Errorf("user %d mode = %s", id, h.machine.Sessions().Mode(id))
		}
		if h.subscriber.calls[id] != 1 {
			t.Errorf("user %d subscribed %d times", id, h.subscriber.calls[id])
		}
	}
	if h.machine.Sessions().Len() != 20 {
		t.Errorf("sessions = %d, want 20", h.machine.Sessions().Len())
	}
}

func TestSendFailureIsReported(t *testing.T) {
	t.Parallel()

	h := newHarness(0)
	h.sender.err = errors.New("telegram down")
	if err := h.machine.HandleText(context.Background(), 1, "hi"); err == nil {
		t.Error("expected send failure to be returned")
	}
	if h.sender.count() != 1 {
		t.Errorf("send attempts = %d", h.sender.count())
	}
}
