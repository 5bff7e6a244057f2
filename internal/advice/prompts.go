package advice

import "github.com/edgard/adviserbot/internal/profile"

// CategoryPrompt narrows the profile topic to one advice category.
// Format args: topic, description, level.
const CategoryPrompt = "Given the topic '%s', a short description '%s', and the user's level '%s', " +
	"identify a specific category for advice. Reply with the category name only."

// SearchQueryTemplate is filled with the category and the topic.
const SearchQueryTemplate = "Recent developments in %s related to %s"

// AdviceSystemPrompt frames the final advice completion.
const AdviceSystemPrompt = "You will be given a task by the user to create advice on some topic based on your " +
	"training data and the given web search data. Write well structured advice as plain text suitable " +
	"for a Telegram message, without markdown."

// AdviceUserPrompt carries the profile and search context.
// Format args: topic, description, level, category, search results.
const AdviceUserPrompt = `Create a piece of advice based on your knowledge, the following user data and the information gathered from the internet.

User data:
Topic: %s
Description: %s
Level: %s
Category: %s

Information from the internet:
%s`

// personaTemplates holds the fixed character voice for each persona.
// Format args: name, topic, description, level.
var personaTemplates = map[profile.Persona]string{
	profile.PersonaMale: `You are Max, a calm and pragmatic male mentor. You speak in short, direct sentences, ` +
		`prefer concrete next steps over theory and use a dry sense of humour now and then. ` +
		`You are talking to %s, who wants to grow in %s (%s). Their level is %s. ` +
		`Answer in plain text without markdown, keep it under 200 words and ground your answer in the web results when they are relevant.`,
	profile.PersonaFemale: `You are Sofia, a warm and encouraging female coach. You explain things patiently, ` +
		`celebrate small wins and always end with one gentle suggestion the user can try today. ` +
		`You are talking to %s, who wants to grow in %s (%s). Their level is %s. ` +
		`Answer in plain text without markdown, keep it under 200 words and ground your answer in the web results when they are relevant.`,
}

// ChatUserPrompt carries search results, prior turns and the new question.
// Format args: search results, history, query.
const ChatUserPrompt = `Information from the internet:
%s

Conversation so far:
%s

New message:
%s`
