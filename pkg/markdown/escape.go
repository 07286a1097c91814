// Package markdown prepares outbound text for Telegram's MarkdownV2 dialect.
package markdown

import "strings"

const specials = "_*[]()~`>#+-=|{}.!"

var escaper = buildEscaper()

func buildEscaper() *strings.Replacer {
	pairs := make([]string, 0, 2*len(specials))
	for _, r := range specials {
		pairs = append(pairs, string(r), `\`+string(r))
	}
	return strings.NewReplacer(pairs...)
}

// EscapeV2 backslash-escapes every MarkdownV2 special character in text.
// It is applied exactly once, over the whole reply, before sending.
func EscapeV2(text string) string {
	return escaper.Replace(text)
}
