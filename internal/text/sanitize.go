// Package text cleans generated text for plain Telegram messages and sizes
// prompt context.
package text

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	controlChars     = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	multipleNewlines = regexp.MustCompile(`\n{3,}`)

	fencedCode = regexp.MustCompile("```[a-zA-Z0-9]*\\n?([\\s\\S]*?)```")
	inlineCode = regexp.MustCompile("`([^`\n]+)`")
	headers    = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	bold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldAlt    = regexp.MustCompile(`__(.+?)__`)
	italic     = regexp.MustCompile(`(^|[^*\w])\*([^*\s][^*\n]*?)\*`)
	strike     = regexp.MustCompile(`~~(.+?)~~`)
	links      = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	quotes     = regexp.MustCompile(`(?m)^>\s?`)
	rules      = regexp.MustCompile(`(?m)^\s*[-*_]{3,}\s*$`)
	bullets    = regexp.MustCompile(`(?m)^(\s*)[*+]\s+`)

	invisibles = strings.NewReplacer(
		"\u2060", "", "\uFEFF", "", "\u00AD", "",
		"\u200E", "", "\u200F", "", "\u200D", "",
		"\u2028", "\n", "\u2029", "\n\n",
		"\u200B", " ", "\u200C", " ", "\u00A0", " ",
		"\u2009", " ", "\u202F", " ", "\u3000", " ",
	)
)

// Clean converts markdown-flavoured model output to plain text and
// normalizes whitespace. Paragraph breaks are kept.
func Clean(input string) string {
	if input == "" {
		return ""
	}

	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = invisibles.Replace(s)
	s = stripMarkdown(s)
	s = controlChars.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = collapseSpaces(line)
	}
	s = strings.Join(lines, "\n")
	s = multipleNewlines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

func stripMarkdown(s string) string {
	s = fencedCode.ReplaceAllString(s, "$1")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = headers.ReplaceAllString(s, "$1")
	s = bold.ReplaceAllString(s, "$1")
	s = boldAlt.ReplaceAllString(s, "$1")
	s = italic.ReplaceAllString(s, "$1$2")
	s = strike.ReplaceAllString(s, "$1")
	s = quotes.ReplaceAllString(s, "")
	s = rules.ReplaceAllString(s, "")
	s = bullets.ReplaceAllString(s, "$1- ")
	return links.ReplaceAllStringFunc(s, func(m string) string {
		g := links.FindStringSubmatch(m)
		if g[1] == g[2] {
			return g[2]
		}
		return g[1] + " (" + g[2] + ")"
	})
}

func collapseSpaces(line string) string {
	var b strings.Builder
	space := false
	for _, r := range line {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteRune(' ')
			}
			space = true
			continue
		}
		b.WriteRune(r)
		space = false
	}
	return strings.TrimSpace(b.String())
}
