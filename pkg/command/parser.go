package command

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/openshift/oncall-chat-bot/pkg/lookup"
)

const (
	// (?iU): case insensitive, and U swaps the meaning of "?" so that a bare
	// quantifier is lazy and a "?" suffixed one is greedy
	patternFlags     = "(?iU)"
	patternStart     = "(^)"
	patternEnd       = "$"
	patternSeparator = "\\s+"
	shortestCapture  = "(.+)"
	longestCapture   = "(.+?)"
)

var (
	parameterWord     = regexp.MustCompile(`^<\S+>$`)
	greedyParameterWord = regexp.MustCompile(`^<\S+\?>$`)
)

var errNoHandler = errors.New("failed to execute the command")

// NewCommand compiles usage into a Command answered by definition.
func NewCommand(usage string, definition *Definition) *Command {
	words := parseUsage(usage)
	return &Command{
		usage:      usage,
		definition: definition,
		words:      words,
		patterns:   compilePatterns(words),
	}
}

// Usage returns the usage string the command was built from.
func (c *Command) Usage() string {
	return c.usage
}

// Definition returns the command's definition.
func (c *Command) Definition() *Definition {
	return c.definition
}

// Execute runs the command's handler.
func (c *Command) Execute(ctx context.Context, service Lookup, apiKey string, properties *Properties) (lookup.Result, error) {
	if c.definition == nil || c.definition.Handler == nil {
		return lookup.Result{}, errNoHandler
	}
	return c.definition.Handler(ctx, service, apiKey, properties)
}

// Match reports whether text invokes the command and extracts its parameters.
func (c *Command) Match(text string) (*Properties, bool) {
	text = strings.TrimSpace(text)
	for _, pattern := range c.patterns {
		groups := pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		// groups[0] is the whole match and groups[1] the start anchor
		values := groups[2:]
		params := map[string]string{}
		for _, w := range c.words {
			if len(values) == 0 {
				break
			}
			if !w.isParameter() {
				continue
			}
			params[w.text] = values[0]
			values = values[1:]
		}
		return NewProperties(params), true
	}
	return nil, false
}

func parseUsage(usage string) []word {
	fields := strings.Fields(usage)
	words := make([]word, 0, len(fields))
	for _, field := range fields {
		switch {
		case greedyParameterWord.MatchString(field):
			words = append(words, word{text: strings.TrimSuffix(field[1:len(field)-1], "?"), kind: greedyParameter})
		case parameterWord.MatchString(field):
			words = append(words, word{text: field[1 : len(field)-1], kind: parameter})
		default:
			words = append(words, word{text: field, kind: literal})
		}
	}
	return words
}

// compilePatterns returns one pattern per number of supplied parameters, most
// parameters first, so the most specific reading of the text wins.
func compilePatterns(words []word) []*regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	var params int
	for _, w := range words {
		if w.isParameter() {
			params++
		}
	}
	patterns := make([]*regexp.Regexp, 0, params+1)
	for keep := params; keep >= 0; keep-- {
		patterns = append(patterns, compilePattern(words, keep))
	}
	return patterns
}

// compilePattern builds a pattern with every literal and the first keep
// parameters.
func compilePattern(words []word, keep int) *regexp.Regexp {
	var parts []string
	for _, w := range words {
		switch w.kind {
		case literal:
			parts = append(parts, regexp.QuoteMeta(w.text))
		case parameter, greedyParameter:
			if keep == 0 {
				continue
			}
			keep--
			if w.kind == greedyParameter {
				parts = append(parts, longestCapture)
			} else {
				parts = append(parts, shortestCapture)
			}
		}
	}
	return regexp.MustCompile(patternFlags + patternStart + strings.Join(parts, patternSeparator) + patternEnd)
}

// Properties holds the parameters extracted from a matched command.
type Properties struct {
	PropertyMap map[string]string
}

// NewProperties creates a new Properties object
func NewProperties(m map[string]string) *Properties {
	return &Properties{PropertyMap: m}
}

// StringParam attempts to look up a string value by key. If not found, return the default string value
func (p *Properties) StringParam(key string, defaultValue string) string {
	value, ok := p.PropertyMap[key]
	if !ok {
		return defaultValue
	}
	return value
}

// Tokens splits a parameter into whitespace separated search tokens.
func (p *Properties) Tokens(key string) []string {
	return strings.Fields(p.StringParam(key, ""))
}
