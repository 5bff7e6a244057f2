// Package profile holds the user advice profile, the onboarding questionnaire
// that fills it, and the storage port the rest of the bot persists it through.
package profile

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/edgard/adviserbot/internal/errors"
)

// Persona selects the character voice used in chat answers.
type Persona string

const (
	PersonaMale   Persona = "Male"
	PersonaFemale Persona = "Female"
)

// Level is the user's self-reported skill level on the topic.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

const secondsPerDay = 86400

// Profile is the fully populated record persisted on confirmation. A profile
// that fails Validate must never reach the store.
type Profile struct {
	UserID      int64   `validate:"gt=0"`
	Name        string  `validate:"required"`
	Topic       string  `validate:"required"`
	Description string  `validate:"required"`
	Frequency   int     `validate:"min=1,max=86400"`
	Persona     Persona `validate:"oneof=Male Female"`
	Level       Level   `validate:"oneof=Beginner Intermediate Advanced"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that every field is set and every enum holds a known value.
func (p *Profile) Validate() error {
	if p == nil {
		return apperrors.NewValidationError("profile is nil", nil)
	}
	if err := validate.Struct(p); err != nil {
		return apperrors.NewValidationError("invalid profile", err)
	}
	return nil
}

// Interval is the delay between two advice deliveries.
func (p *Profile) Interval() time.Duration {
	return Interval(p.Frequency)
}

// Answers renders the profile back into questionnaire answers.
func (p *Profile) Answers() Answers {
	return Answers{
		FieldName:        p.Name,
		FieldTopic:       p.Topic,
		FieldDescription: p.Description,
		FieldFrequency:   strconv.Itoa(p.Frequency),
		FieldPersona:     string(p.Persona),
		FieldLevel:       string(p.Level),
	}
}

// Interval returns 86400/frequency seconds. Frequencies below one are treated
// as one delivery per day.
func Interval(frequency int) time.Duration {
	if frequency < 1 {
		frequency = 1
	}
	return secondsPerDay * time.Second / time.Duration(frequency)
}

// ParseFrequency reads the leading integer of a frequency answer, so both
// "3" and "3 times a day" yield 3.
func ParseFrequency(answer string) (int, error) {
	fields := strings.Fields(answer)
	if len(fields) == 0 {
		return 0, apperrors.NewValidationError("frequency is empty", nil)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, apperrors.NewValidationError(fmt.Sprintf("frequency %q is not a number", answer), err)
	}
	if n < 1 || n > secondsPerDay {
		return 0, apperrors.NewValidationError(fmt.Sprintf("frequency %d is out of range", n), nil)
	}
	return n, nil
}

// FromAnswers builds a validated profile out of collected questionnaire answers.
func FromAnswers(userID int64, answers Answers) (*Profile, error) {
	for _, f := range Fields {
		if _, ok := answers[f]; !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("missing answer for %s", f), nil)
		}
	}

	frequency, err := ParseFrequency(answers[FieldFrequency])
	if err != nil {
		return nil, err
	}

	p := &Profile{
		UserID:      userID,
		Name:        answers[FieldName],
		Topic:       answers[FieldTopic],
		Description: answers[FieldDescription],
		Frequency:   frequency,
		Persona:     Persona(answers[FieldPersona]),
		Level:       Level(answers[FieldLevel]),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Store is the persistence port for profiles.
type Store interface {
	// GetProfile returns nil, nil when the user never confirmed onboarding.
	GetProfile(ctx context.Context, userID int64) (*Profile, error)

	// UpsertProfile atomically inserts or replaces the whole record.
	UpsertProfile(ctx context.Context, p *Profile) error

	// ListProfiles returns every persisted profile.
	ListProfiles(ctx context.Context) ([]*Profile, error)
}
