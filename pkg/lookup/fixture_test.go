package lookup

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/openshift/oncall-chat-bot/pkg/pagerduty"
)

// upstream is a fake PagerDuty API serving canned bodies. Routes are keyed by
// path, except /oncalls which is keyed by "/oncalls/<policy id>". Missing
// routes answer 404 and a body of "500" answers with a server error.
type upstream struct {
	server *httptest.Server
	routes map[string]string

	lock     sync.Mutex
	requests []string
}

func newUpstream(t *testing.T, routes map[string]string) *upstream {
	t.Helper()
	u := &upstream{routes: routes}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if key == "/oncalls" {
			key += "/" + r.URL.Query().Get("escalation_policy_ids[]")
		}
		u.lock.Lock()
		u.requests = append(u.requests, key)
		u.lock.Unlock()

		body, ok := u.routes[key]
		switch {
		case !ok:
			w.WriteHeader(http.StatusNotFound)
		case body == "500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		}
	}))
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) requested() []string {
	u.lock.Lock()
	defer u.lock.Unlock()
	return append([]string(nil), u.requests...)
}

func (u *upstream) count(key string) int {
	var n int
	for _, r := range u.requested() {
		if r == key {
			n++
		}
	}
	return n
}

func newTestService(t *testing.T, routes map[string]string, opts Options) (*Service, *upstream) {
	t.Helper()
	u := newUpstream(t, routes)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	queue := pagerduty.NewQueue(3, pagerduty.NewHTTPExecutor(pagerduty.ExecutorOptions{}), nil, logrus.NewEntry(logger))
	t.Cleanup(queue.Shutdown)
	endpoint := pagerduty.NewEndpoint("http", strings.TrimPrefix(u.server.URL, "http://"))
	opts.Logger = logrus.NewEntry(logger)
	return NewService(pagerduty.NewClient(endpoint, queue), opts), u
}

const (
	platformPolicies = `{"escalation_policies": [{"id": "PEP1", "name": "Platform", "teams": [{"id": "PT1", "summary": "Platform Team"}]}]}`

	platformOnCalls = `{"oncalls": [
		{"escalation_level": 2, "escalation_policy": {"id": "PEP1"}, "user": {"id": "PU2", "summary": "Bea Jones"}},
		{"escalation_level": 1, "escalation_policy": {"id": "PEP1"}, "user": {"id": "PU1", "summary": "Dan Smith"}}
	]}`

	danSmith = `{"user": {"id": "PU1", "name": "Dan Smith", "email": "dan@example.com", "contact_methods": [
		{"id": "PC1", "type": "email_contact_method", "address": "dan@example.com"},
		{"id": "PC2", "type": "sms_contact_method", "address": "5550100", "country_code": 1},
		{"id": "PC3", "type": "push_notification_contact_method", "address": "iphone"}
	]}}`

	beaJones = `{"user": {"id": "PU2", "name": "Bea Jones", "contact_methods": [
		{"id": "PC4", "type": "phone_contact_method", "address": "5550101", "country_code": 1}
	]}}`
)

var (
	danSmithLabeled = pagerduty.User{
		ID:    "PU1",
		Name:  "Dan Smith",
		Email: "dan@example.com",
		ContactMethods: []pagerduty.ContactMethod{
			{ID: "PC1", Type: "email_contact_method", Address: "dan@example.com", Label: "Email"},
			{ID: "PC2", Type: "sms_contact_method", Address: "5550100", CountryCode: 1, Label: "Text"},
			{},
		},
	}
	beaJonesLabeled = pagerduty.User{
		ID:   "PU2",
		Name: "Bea Jones",
		ContactMethods: []pagerduty.ContactMethod{
			{ID: "PC4", Type: "phone_contact_method", Address: "5550101", CountryCode: 1, Label: "Phone"},
		},
	}
	platformPolicy = pagerduty.EscalationPolicy{ID: "PEP1", Name: "Platform", Teams: []pagerduty.Reference{{ID: "PT1", Summary: "Platform Team"}}}
)
