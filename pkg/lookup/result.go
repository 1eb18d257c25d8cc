package lookup

import (
	"encoding/json"

	"github.com/openshift/oncall-chat-bot/pkg/pagerduty"
)

// Sentinel names an expected "no answer" outcome. Sentinels are data, not
// errors: every workflow returns a Result carrying either a payload or one of
// these.
type Sentinel string

const (
	// MinLengthError means the search term was shorter than MinSearchLength.
	MinLengthError Sentinel = "min_len_err"
	// NotFound means nothing matched or an upstream call failed.
	NotFound Sentinel = "not_found"
	// UserNotFound means the user search matched nobody.
	UserNotFound Sentinel = "user_not_found"
	// NoUsers means policies matched but nobody is on call for them.
	NoUsers Sentinel = "no_users"
)

// Result is what every workflow returns. Exactly one of Sentinel or the
// payload fields is set.
type Result struct {
	Sentinel Sentinel `json:"-"`

	Teams              []pagerduty.Team             `json:"teams,omitempty"`
	EscalationPolicies []pagerduty.EscalationPolicy `json:"escalation_policies,omitempty"`
	OnCall             []PolicyOnCall               `json:"oncall,omitempty"`
	Users              []pagerduty.User             `json:"users,omitempty"`
	TooMany            bool                         `json:"tooMany,omitempty"`
}

// PolicyOnCall is an escalation policy together with the people currently on
// call for it, ordered by escalation level. OnCall is nil when nobody in the
// requested scope is on call.
type PolicyOnCall struct {
	pagerduty.EscalationPolicy
	OnCall []OnCallUser `json:"oncall"`
}

// OnCallUser is a user on call for a policy. Levels holds every escalation
// level the user covers on that policy in ascending order; Level is the lowest
// of them and is used for ordering.
type OnCallUser struct {
	pagerduty.User
	Level  int   `json:"escalation_level"`
	Levels []int `json:"escalation_levels"`
}

func failed(sentinel Sentinel) Result {
	return Result{Sentinel: sentinel}
}

// Failed reports whether the result is a sentinel.
func (r Result) Failed() bool {
	return r.Sentinel != ""
}

// Is reports whether the result is the given sentinel.
func (r Result) Is(sentinel Sentinel) bool {
	return r.Sentinel == sentinel
}

// MarshalJSON renders sentinels as {"<sentinel>": true} and payloads with their
// field names.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(map[Sentinel]bool{r.Sentinel: true})
	}
	type payload Result
	return json.Marshal(payload(r))
}
