package utils

import (
	"strings"
)

// StripLinks replaces Slack formatted links (<url> or <url|text>) with their
// visible text, so "<mailto:dan@example.com|dan@example.com>" becomes
// "dan@example.com".
func StripLinks(input string) string {
	var b strings.Builder
	for {
		open := strings.Index(input, "<")
		if open == -1 {
			b.WriteString(input)
			break
		}
		end := strings.Index(input[open:], ">")
		if end == -1 {
			b.WriteString(input)
			break
		}
		pipe := strings.Index(input[open:], "|")
		if pipe == -1 || pipe > end {
			b.WriteString(input[0:open])
			b.WriteString(strings.TrimPrefix(input[open+1:open+end], "mailto:"))
			input = input[open+end+1:]
			continue
		}
		b.WriteString(input[0:open])
		b.WriteString(input[open+pipe+1 : open+end])
		input = input[open+end+1:]
	}
	return b.String()
}
