package database

import (
	"time"

	"github.com/edgard/adviserbot/internal/profile"
)

// profileRow is the user_profiles table layout.
type profileRow struct {
	UserID      int64     `db:"user_id"`
	Name        string    `db:"name"`
	Topic       string    `db:"topic"`
	Description string    `db:"description"`
	Frequency   int       `db:"frequency"`
	Persona     string    `db:"persona"`
	Level       string    `db:"level"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func rowFromProfile(p *profile.Profile, now time.Time) profileRow {
	return profileRow{
		UserID:      p.UserID,
		Name:        p.Name,
		Topic:       p.Topic,
		Description: p.Description,
		Frequency:   p.Frequency,
		Persona:     string(p.Persona),
		Level:       string(p.Level),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (r profileRow) toProfile() *profile.Profile {
	return &profile.Profile{
		UserID:      r.UserID,
		Name:        r.Name,
		Topic:       r.Topic,
		Description: r.Description,
		Frequency:   r.Frequency,
		Persona:     profile.Persona(r.Persona),
		Level:       profile.Level(r.Level),
	}
}
