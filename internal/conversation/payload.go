package conversation

import (
	"fmt"
	"strings"

	apperrors "github.com/edgard/adviserbot/internal/errors"
	"github.com/edgard/adviserbot/internal/profile"
)

// Action is the kind of button press.
type Action string

const (
	ActionAddTopic     Action = "add_topic"
	ActionConfirm      Action = "confirm"
	ActionEdit         Action = "edit"
	ActionSelectField  Action = "field"
	ActionSelectOption Action = "option"
)

// Payload is the data carried by an inline button. Value holds the field
// for ActionSelectField and the chosen option for ActionSelectOption.
type Payload struct {
	Action Action
	Value  string
}

func AddTopic() Payload { return Payload{Action: ActionAddTopic} }
func Confirm() Payload  { return Payload{Action: ActionConfirm} }
func Edit() Payload     { return Payload{Action: ActionEdit} }

func SelectField(f profile.Field) Payload {
	return Payload{Action: ActionSelectField, Value: string(f)}
}

func SelectOption(option string) Payload {
	return Payload{Action: ActionSelectOption, Value: option}
}

// Encode renders the payload as callback data, e.g. "field:TOPIC".
func (p Payload) Encode() string {
	switch p.Action {
	case ActionSelectField, ActionSelectOption:
		return string(p.Action) + ":" + p.Value
	default:
		return string(p.Action)
	}
}

// ParsePayload is the inverse of Encode.
func ParsePayload(data string) (Payload, error) {
	action, value, hasValue := strings.Cut(strings.TrimSpace(data), ":")

	switch Action(action) {
	case ActionAddTopic, ActionConfirm, ActionEdit:
		if hasValue {
			return Payload{}, invalidPayload(data)
		}
		return Payload{Action: Action(action)}, nil
	case ActionSelectField:
		f, ok := profile.ParseField(value)
		if !hasValue || !ok {
			return Payload{}, invalidPayload(data)
		}
		return SelectField(f), nil
	case ActionSelectOption:
		if !hasValue || value == "" {
			return Payload{}, invalidPayload(data)
		}
		return SelectOption(value), nil
	default:
		return Payload{}, invalidPayload(data)
	}
}

func invalidPayload(data string) error {
	return apperrors.NewValidationError(fmt.Sprintf("unknown button payload %q", data), nil)
}
