package lookup

import (
	"strings"
	"unicode/utf8"
)

// MinSearchLength is the shortest search term sent upstream.
const MinSearchLength = 3

// SearchTerm is the caller's tokens joined with single spaces and trimmed.
type SearchTerm string

// NewSearchTerm joins tokens into a term. ok is false when the term is too
// short to search for.
func NewSearchTerm(tokens []string) (term SearchTerm, ok bool) {
	joined := strings.TrimSpace(strings.Join(tokens, " "))
	return SearchTerm(joined), utf8.RuneCountInString(joined) >= MinSearchLength
}

func (t SearchTerm) String() string {
	return string(t)
}
