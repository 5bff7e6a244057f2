package conversation

import (
	"context"

	"github.com/edgard/adviserbot/internal/advice"
	"github.com/edgard/adviserbot/internal/profile"
)

// Button is an inline button.
type Button struct {
	Label   string
	Payload Payload
}

// Reply is one outbound message. Options attaches a single-choice reply
// keyboard and Buttons an inline keyboard; at most one of them is set.
// RemoveKeyboard hides a previously shown reply keyboard.
type Reply struct {
	Text           string
	Options        []string
	Buttons        []Button
	RemoveKeyboard bool
}

// Sender delivers replies to a user.
type Sender interface {
	Send(ctx context.Context, userID int64, reply Reply) error
}

// Subscriber starts advice delivery for a user. Calling it for a user who
// already has a live task must not create a second one.
type Subscriber interface {
	Subscribe(ctx context.Context, userID int64) error
}

// Advisor answers chat messages.
type Advisor interface {
	Answer(ctx context.Context, p *profile.Profile, query string, history []advice.Turn) (string, error)
}
