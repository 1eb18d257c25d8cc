package pagerduty

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultHost is the PagerDuty REST API host.
	DefaultHost = "api.pagerduty.com"

	acceptHeader = "application/vnd.pagerduty+json;version=2"
)

// Resource names used to tag requests in logs and metrics.
const (
	ResourceTeams              = "teams"
	ResourceEscalationPolicies = "escalation_policies"
	ResourceOnCalls            = "oncalls"
	ResourceUser               = "user"
	ResourceUsers              = "users"
)

// Request describes a single upstream API call. It is a plain value: copying
// it is safe and nothing about it changes once built.
type Request struct {
	Method   string
	Scheme   string
	Host     string
	Path     string
	RawQuery string
	// Resource names the kind of resource requested, for logs and metrics.
	Resource string

	token string
}

// URL returns the absolute URL of the request.
func (r Request) URL() string {
	u := r.Scheme + "://" + r.Host + r.Path
	if r.RawQuery != "" {
		u += "?" + r.RawQuery
	}
	return u
}

// Header returns a fresh copy of the headers sent with the request.
func (r Request) Header() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", acceptHeader)
	h.Set("Authorization", "Token token="+r.token)
	return h
}

// Endpoint builds requests against one API host. The zero value is not usable,
// use NewEndpoint.
type Endpoint struct {
	scheme string
	host   string
}

// NewEndpoint returns an Endpoint for the given scheme and host. Empty values
// fall back to https and DefaultHost.
func NewEndpoint(scheme, host string) Endpoint {
	if scheme == "" {
		scheme = "https"
	}
	if host == "" {
		host = DefaultHost
	}
	return Endpoint{scheme: scheme, host: host}
}

func (e Endpoint) get(resource, path, apiKey string, query ...string) Request {
	return Request{
		Method:   http.MethodGet,
		Scheme:   e.scheme,
		Host:     e.host,
		Path:     path,
		RawQuery: strings.Join(query, "&"),
		Resource: resource,
		token:    apiKey,
	}
}

// Teams searches teams by name.
func (e Endpoint) Teams(apiKey, term string) Request {
	return e.get(ResourceTeams, "/teams", apiKey, "query="+url.QueryEscape(term))
}

// EscalationPolicies searches escalation policies by name, including the
// services and teams they are attached to, sorted by name.
func (e Endpoint) EscalationPolicies(apiKey, term string) Request {
	return e.get(ResourceEscalationPolicies, "/escalation_policies", apiKey,
		"include[]=services",
		"include[]=teams",
		"sort_by=name",
		"query="+url.QueryEscape(term),
	)
}

// OnCalls lists the current on-call shifts of one escalation policy.
func (e Endpoint) OnCalls(apiKey, policyID string) Request {
	return e.get(ResourceOnCalls, "/oncalls", apiKey,
		"time_zone=UTC",
		"include[]=users",
		"escalation_policy_ids[]="+url.QueryEscape(policyID),
	)
}

// User fetches a single user with their contact methods.
func (e Endpoint) User(apiKey, userID string) Request {
	return e.get(ResourceUser, "/users/"+url.PathEscape(userID), apiKey, "include[]=contact_methods")
}

// UserSearch searches users by name or email.
func (e Endpoint) UserSearch(apiKey, term string) Request {
	return e.get(ResourceUsers, "/users", apiKey,
		"include[]=contact_methods",
		"include[]=notification_rules",
		"include[]=teams",
		"query="+url.QueryEscape(term),
	)
}
