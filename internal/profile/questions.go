package profile

import (
	"fmt"
	"strings"
)

// Field names a questionnaire answer.
type Field string

const (
	FieldName        Field = "NAME"
	FieldTopic       Field = "TOPIC"
	FieldDescription Field = "DESCRIPTION"
	FieldFrequency   Field = "FREQUENCY"
	FieldPersona     Field = "PERSONA"
	FieldLevel       Field = "LEVEL"
)

// Fields lists every field in question order.
var Fields = []Field{
	FieldName,
	FieldTopic,
	FieldDescription,
	FieldFrequency,
	FieldPersona,
	FieldLevel,
}

var (
	TopicOptions     = []string{"Personal Development", "Crypto", "AI", "Development", "Sport", "Other"}
	FrequencyOptions = []string{"1", "2", "3", "4", "6", "12", "24"}
	PersonaOptions   = []string{string(PersonaMale), string(PersonaFemale)}
	LevelOptions     = []string{string(LevelBeginner), string(LevelIntermediate), string(LevelAdvanced)}
)

// Question is one onboarding prompt. Options is empty for free-text answers.
type Question struct {
	Field   Field
	Label   string
	Prompt  string
	Options []string
}

var questions = map[Field]Question{
	FieldName: {
		Field:  FieldName,
		Label:  "Name",
		Prompt: "What nickname or name should I use to address you?",
	},
	FieldTopic: {
		Field:   FieldTopic,
		Label:   "Topic",
		Prompt:  "Which topic are you interested in?",
		Options: TopicOptions,
	},
	FieldDescription: {
		Field:  FieldDescription,
		Label:  "Description",
		Prompt: "Describe in a few words what exactly interests you about this topic.",
	},
	FieldFrequency: {
		Field:   FieldFrequency,
		Label:   "Frequency",
		Prompt:  "How many pieces of advice per day would you like to get?",
		Options: FrequencyOptions,
	},
	FieldPersona: {
		Field:   FieldPersona,
		Label:   "Persona",
		Prompt:  "Which personality do you prefer for the bot?",
		Options: PersonaOptions,
	},
	FieldLevel: {
		Field:   FieldLevel,
		Label:   "Level",
		Prompt:  "What's your current level on the chosen topic?",
		Options: LevelOptions,
	},
}

// QuestionFor returns the question that fills f.
func QuestionFor(f Field) (Question, bool) {
	q, ok := questions[f]
	return q, ok
}

// QuestionAt returns the i-th question in onboarding order.
func QuestionAt(i int) (Question, bool) {
	if i < 0 || i >= len(Fields) {
		return Question{}, false
	}
	return questions[Fields[i]], true
}

// QuestionCount is the number of onboarding questions.
func QuestionCount() int {
	return len(Fields)
}

// ParseField accepts a field name in any case.
func ParseField(s string) (Field, bool) {
	f := Field(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := questions[f]
	return f, ok
}

// Answers maps fields to the verbatim text the user submitted.
type Answers map[Field]string

// Clone returns an independent copy.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Summary renders one "Label: value" line per answered field in question order.
func (a Answers) Summary() string {
	var sb strings.Builder
	for _, f := range Fields {
		v, ok := a[f]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", questions[f].Label, v)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
