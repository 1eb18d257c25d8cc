package pagerduty

// Reference is the compact form PagerDuty uses when one resource points at another.
type Reference struct {
	ID      string `json:"id"`
	Type    string `json:"type,omitempty"`
	Summary string `json:"summary,omitempty"`
	Self    string `json:"self,omitempty"`
	HTMLURL string `json:"html_url,omitempty"`
}

// Team is a PagerDuty team.
type Team struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	Name        string `json:"name"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	HTMLURL     string `json:"html_url,omitempty"`
}

// EscalationPolicy is an ordered chain of on-call levels. Services and Teams are
// only populated when requested through include[].
type EscalationPolicy struct {
	ID          string      `json:"id"`
	Type        string      `json:"type,omitempty"`
	Name        string      `json:"name"`
	Summary     string      `json:"summary,omitempty"`
	Description string      `json:"description,omitempty"`
	HTMLURL     string      `json:"html_url,omitempty"`
	NumLoops    int         `json:"num_loops,omitempty"`
	Services    []Reference `json:"services,omitempty"`
	Teams       []Reference `json:"teams,omitempty"`
}

// OnCall is a single on-call shift entry. A user shows up once per escalation
// level they hold.
type OnCall struct {
	User             User       `json:"user"`
	EscalationPolicy Reference  `json:"escalation_policy"`
	EscalationLevel  int        `json:"escalation_level"`
	Schedule         *Reference `json:"schedule,omitempty"`
	Start            string     `json:"start,omitempty"`
	End              string     `json:"end,omitempty"`
}

// User is a PagerDuty user. ContactMethods, NotificationRules and Teams are
// only populated when requested through include[].
type User struct {
	ID                string             `json:"id"`
	Type              string             `json:"type,omitempty"`
	Name              string             `json:"name,omitempty"`
	Summary           string             `json:"summary,omitempty"`
	Email             string             `json:"email,omitempty"`
	TimeZone          string             `json:"time_zone,omitempty"`
	Role              string             `json:"role,omitempty"`
	JobTitle          string             `json:"job_title,omitempty"`
	Description       string             `json:"description,omitempty"`
	HTMLURL           string             `json:"html_url,omitempty"`
	ContactMethods    []ContactMethod    `json:"contact_methods,omitempty"`
	NotificationRules []NotificationRule `json:"notification_rules,omitempty"`
	Teams             []Reference        `json:"teams,omitempty"`
}

// ContactMethod is a channel a user can be notified on. Label is filled in by
// LabelContactMethods for display.
type ContactMethod struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Address     string `json:"address,omitempty"`
	CountryCode int    `json:"country_code,omitempty"`
	Label       string `json:"label,omitempty"`
}

// NotificationRule says when and how a user is contacted for an incident.
type NotificationRule struct {
	ID                  string    `json:"id,omitempty"`
	Type                string    `json:"type,omitempty"`
	Summary             string    `json:"summary,omitempty"`
	StartDelayInMinutes int       `json:"start_delay_in_minutes"`
	Urgency             string    `json:"urgency,omitempty"`
	ContactMethod       Reference `json:"contact_method"`
}

// Pagination is embedded by every list response.
type Pagination struct {
	Limit  int  `json:"limit,omitempty"`
	Offset int  `json:"offset,omitempty"`
	More   bool `json:"more,omitempty"`
}

// TeamList is the body of GET /teams.
type TeamList struct {
	Pagination
	Teams []Team `json:"teams"`
}

// EscalationPolicyList is the body of GET /escalation_policies.
type EscalationPolicyList struct {
	Pagination
	EscalationPolicies []EscalationPolicy `json:"escalation_policies"`
}

// OnCallList is the body of GET /oncalls.
type OnCallList struct {
	Pagination
	OnCalls []OnCall `json:"oncalls"`
}

// UserList is the body of GET /users.
type UserList struct {
	Pagination
	Users []User `json:"users"`
}

// UserResponse is the body of GET /users/{id}.
type UserResponse struct {
	User User `json:"user"`
}
