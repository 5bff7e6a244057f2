// Package conversation drives the onboarding questionnaire, the
// confirm/edit loop and chat mode for every user.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"

	"github.com/edgard/adviserbot/internal/advice"
	apperrors "github.com/edgard/adviserbot/internal/errors"
	"github.com/edgard/adviserbot/internal/profile"
)

// Mode is the conversation state of one user.
type Mode string

const (
	ModeIdle                 Mode = "Idle"
	ModeOnboarding           Mode = "Onboarding"
	ModeEditing              Mode = "Editing"
	ModeAwaitingConfirmation Mode = "AwaitingConfirmation"
	ModeChatting             Mode = "Chatting"
)

// Transition events.
const (
	eventBegin       = "begin"
	eventAnswered    = "answered"
	eventSelectField = "select_field"
	eventEdited      = "edited"
	eventConfirm     = "confirm"
	eventExit        = "exit"
)

var allModes = []string{
	string(ModeIdle),
	string(ModeOnboarding),
	string(ModeEditing),
	string(ModeAwaitingConfirmation),
	string(ModeChatting),
}

var transitions = fsm.Events{
	{Name: eventBegin, Src: allModes, Dst: string(ModeOnboarding)},
	{Name: eventAnswered, Src: []string{string(ModeOnboarding)}, Dst: string(ModeAwaitingConfirmation)},
	{Name: eventSelectField, Src: []string{string(ModeAwaitingConfirmation)}, Dst: string(ModeEditing)},
	{Name: eventEdited, Src: []string{string(ModeEditing)}, Dst: string(ModeAwaitingConfirmation)},
	{Name: eventConfirm, Src: []string{string(ModeAwaitingConfirmation)}, Dst: string(ModeChatting)},
	{Name: eventExit, Src: allModes, Dst: string(ModeIdle)},
}

// Session is the volatile per-user conversation state.
// QuestionIndex is only meaningful while onboarding and EditingField is only
// set while editing.
type Session struct {
	UserID        int64
	Answers       profile.Answers
	QuestionIndex int
	EditingField  profile.Field
	History       []advice.Turn

	state *fsm.FSM
}

func newSession(userID int64) *Session {
	return &Session{
		UserID:  userID,
		Answers: profile.Answers{},
		state:   fsm.NewFSM(string(ModeIdle), transitions, fsm.Callbacks{}),
	}
}

func (s *Session) Mode() Mode {
	return Mode(s.state.Current())
}

// fire applies event. Re-entering the current mode is not an error.
func (s *Session) fire(ctx context.Context, event string) error {
	err := s.state.Event(ctx, event)
	if err == nil {
		return nil
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return apperrors.NewInvalidTransition(fmt.Sprintf("%s is not allowed in mode %s", event, s.Mode()))
}

// beginOnboarding discards pending answers and history and starts over.
func (s *Session) beginOnboarding(ctx context.Context) error {
	if err := s.fire(ctx, eventBegin); err != nil {
		return err
	}
	s.Answers = profile.Answers{}
	s.QuestionIndex = 0
	s.EditingField = ""
	s.History = nil
	return nil
}

func (s *Session) reset(ctx context.Context) error {
	if err := s.fire(ctx, eventExit); err != nil {
		return err
	}
	s.Answers = profile.Answers{}
	s.QuestionIndex = 0
	s.EditingField = ""
	s.History = nil
	return nil
}

// appendTurn adds a turn and keeps only the newest limit entries.
func (s *Session) appendTurn(t advice.Turn, limit int) {
	s.History = append(s.History, t)
	if limit > 0 && len(s.History) > limit {
		s.History = append([]advice.Turn(nil), s.History[len(s.History)-limit:]...)
	}
}

// SessionStore owns every session. Each user's session has its own lock so
// one user's events are handled one at a time while users never wait on
// each other.
type SessionStore struct {
	mu      sync.Mutex
	entries map[int64]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{entries: make(map[int64]*sessionEntry)}
}

func (s *SessionStore) entry(userID int64) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		e = &sessionEntry{session: newSession(userID)}
		s.entries[userID] = e
	}
	return e
}

// With runs fn while holding the user's session lock, creating the session
// on first use.
func (s *SessionStore) With(userID int64, fn func(*Session) error) error {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

// Mode reports the user's current mode.
func (s *SessionStore) Mode(userID int64) Mode {
	var mode Mode
	_ = s.With(userID, func(sess *Session) error {
		mode = sess.Mode()
		return nil
	})
	return mode
}

// Len is the number of users with a session.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
