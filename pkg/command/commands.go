package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openshift/oncall-chat-bot/pkg/lookup"
	"github.com/openshift/oncall-chat-bot/pkg/utils"
)

// ErrUnrecognized is returned by Dispatch when no command matches.
var ErrUnrecognized = errors.New("unrecognized command")

// UsageError reports a matched command invoked with invalid arguments.
type UsageError struct {
	Usage   string
	Message string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s (usage: `%s`)", e.Message, e.Usage)
}

// SupportedCommands returns the commands the bot answers.
func SupportedCommands() []*Command {
	return []*Command{
		NewCommand("team <name>", &Definition{
			Description: "Find PagerDuty teams by full or partial name.",
			Example:     "team platform",
			Handler:     Team,
		}),
		NewCommand("escalation <name>", &Definition{
			Description: "Find escalation policies by full or partial name, with the services and teams they cover.",
			Example:     "escalation platform",
			Handler:     Escalation,
		}),
		NewCommand("oncall <scope> <name>", &Definition{
			Description: fmt.Sprintf("Show who is on call for the escalation policies matching a full or partial name. Scope is one of %s.", strings.Join(codeSlice(lookup.Scopes), ", ")),
			Example:     "oncall primary platform",
			Handler:     OnCall,
		}),
		NewCommand("user <name>", &Definition{
			Description: "Find PagerDuty users by name or email, with their contact methods.",
			Example:     "user dan",
			Handler:     User,
		}),
	}
}

func codeSlice(items []string) []string {
	code := make([]string, 0, len(items))
	for _, item := range items {
		code = append(code, fmt.Sprintf("`%s`", item))
	}
	return code
}

// Dispatch runs the first command matching text. Slack link markup in text is
// reduced to its visible form first.
func Dispatch(ctx context.Context, commands []*Command, service Lookup, apiKey, text string) (lookup.Result, error) {
	text = utils.StripLinks(text)
	for _, command := range commands {
		properties, match := command.Match(text)
		if !match {
			continue
		}
		return command.Execute(ctx, service, apiKey, properties)
	}
	return lookup.Result{}, ErrUnrecognized
}

func Team(ctx context.Context, service Lookup, apiKey string, properties *Properties) (lookup.Result, error) {
	return service.Teams(ctx, apiKey, properties.Tokens("name")), nil
}

func Escalation(ctx context.Context, service Lookup, apiKey string, properties *Properties) (lookup.Result, error) {
	return service.Escalations(ctx, apiKey, properties.Tokens("name")), nil
}

func OnCall(ctx context.Context, service Lookup, apiKey string, properties *Properties) (lookup.Result, error) {
	scope, err := lookup.ParseScope(properties.StringParam("scope", ""))
	if err != nil {
		return lookup.Result{}, &UsageError{
			Usage:   "oncall <scope> <name>",
			Message: fmt.Sprintf("scope must be one of %s", strings.Join(codeSlice(lookup.Scopes), ", ")),
		}
	}
	return service.OnCall(ctx, apiKey, scope, properties.Tokens("name")), nil
}

func User(ctx context.Context, service Lookup, apiKey string, properties *Properties) (lookup.Result, error) {
	return service.Users(ctx, apiKey, properties.Tokens("name")), nil
}
