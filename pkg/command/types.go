package command

import (
	"context"
	"regexp"

	"github.com/openshift/oncall-chat-bot/pkg/lookup"
)

// Lookup is the set of operations chat commands are answered with.
type Lookup interface {
	Teams(ctx context.Context, apiKey string, tokens []string) lookup.Result
	Escalations(ctx context.Context, apiKey string, tokens []string) lookup.Result
	OnCall(ctx context.Context, apiKey string, scope lookup.Scope, tokens []string) lookup.Result
	Users(ctx context.Context, apiKey string, tokens []string) lookup.Result
}

// Handler answers a matched command.
type Handler func(ctx context.Context, service Lookup, apiKey string, properties *Properties) (lookup.Result, error)

// Definition describes what a command does and how it is answered.
type Definition struct {
	Description string
	Example     string
	Handler     Handler
}

// Command is a usage string such as "oncall <scope> <name>" compiled into
// matchers. Trailing parameters may be left out.
type Command struct {
	usage      string
	definition *Definition
	words      []word
	patterns   []*regexp.Regexp
}

type wordKind int

const (
	literal wordKind = iota
	// parameter captures as little as it can, leaving the rest to later words.
	parameter
	// greedyParameter, written <name?>, captures as much as it can.
	greedyParameter
)

// word is one whitespace separated element of a usage string.
type word struct {
	text string
	kind wordKind
}

func (w word) isParameter() bool {
	return w.kind != literal
}
