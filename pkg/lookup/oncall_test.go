package lookup

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/openshift/oncall-chat-bot/pkg/pagerduty"
)

func TestParseScope(t *testing.T) {
	t.Parallel()
	for input, expected := range map[string]Scope{"primary": ScopePrimary, "Secondary": ScopeSecondary, " ALL ": ScopeAll} {
		scope, err := ParseScope(input)
		if err != nil || scope != expected {
			t.Errorf("ParseScope(%q) = %q, %v; expected %q", input, scope, err, expected)
		}
	}
	if _, err := ParseScope("tertiary"); err == nil {
		t.Error("expected an error for an unknown scope")
	}
}

func TestOnCallPrimaryEndToEnd(t *testing.T) {
	t.Parallel()
	service, upstream := newTestService(t, map[string]string{
		"/escalation_policies": platformPolicies,
		"/oncalls/PEP1":        platformOnCalls,
		"/users/PU1":           danSmith,
		"/users/PU2":           beaJones,
	}, Options{})

	result := service.OnCall(context.Background(), "key", ScopePrimary, []string{"platform"})
	expected := Result{OnCall: []PolicyOnCall{{
		EscalationPolicy: platformPolicy,
		OnCall:           []OnCallUser{{User: danSmithLabeled, Level: 1, Levels: []int{1}}},
	}}}
	if diff := cmp.Diff(expected, result); diff != "" {
		t.Errorf("result differs from expected:\n%s", diff)
	}
	if n := upstream.count("/users/PU2"); n != 0 {
		t.Errorf("secondary user should not have been fetched, got %d requests", n)
	}
}

func TestOnCallScopes(t *testing.T) {
	t.Parallel()
	// PU1 covers levels 1 and 2, PU2 only level 2, PU3 only level 3
	onCalls := `{"oncalls": [
		{"escalation_level": 3, "escalation_policy": {"id": "PEP1"}, "user": {"id": "PU3"}},
		{"escalation_level": 2, "escalation_policy": {"id": "PEP1"}, "user": {"id": "PU1"}},
		{"escalation_level": 2, "escalation_policy": {"id": "PEP1"}, "user": {"id": "PU2"}},
		{"escalation_level": 1, "escalation_policy": {"id": "PEP1"}, "user": {"id": "PU1"}}
	]}`
	routes := map[string]string{
		"/escalation_policies": platformPolicies,
		"/oncalls/PEP1":        onCalls,
		"/users/PU1":           danSmith,
		"/users/PU2":           beaJones,
		"/users/PU3":           `{"user": {"id": "PU3", "name": "Cy Young"}}`,
	}
	dan := OnCallUser{User: danSmithLabeled, Level: 1, Levels: []int{1, 2}}
	bea := OnCallUser{User: beaJonesLabeled, Level: 2, Levels: []int{2}}
	cy := OnCallUser{User: pagerduty.User{ID: "PU3", Name: "Cy Young"}, Level: 3, Levels: []int{3}}

	testCases := []struct {
		scope    Scope
		expected []OnCallUser
	}{
		{scope: ScopePrimary, expected: []OnCallUser{dan}},
		{scope: ScopeSecondary, expected: []OnCallUser{dan, bea}},
		{scope: ScopeAll, expected: []OnCallUser{dan, bea, cy}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(string(tc.scope), func(t *testing.T) {
			t.Parallel()
			service, _ := newTestService(t, routes, Options{})
			result := service.OnCall(context.Background(), "key", tc.scope, []string{"platform"})
			if result.Failed() {
				t.Fatalf("unexpected sentinel %s", result.Sentinel)
			}
			if len(result.OnCall) != 1 {
				t.Fatalf("expected one policy, got %d", len(result.OnCall))
			}
			if diff := cmp.Diff(tc.expected, result.OnCall[0].OnCall); diff != "" {
				t.Errorf("on-call users differ from expected:\n%s", diff)
			}
		})
	}
}

func TestOnCallFailures(t *testing.T) {
	t.Parallel()
	threePolicies := `{"escalation_policies": [{"id": "PEP1", "name": "Platform"}, {"id": "PEP2", "name": "Platform DB"}]}`
	testCases := []struct {
		name     string
		routes   map[string]string
		expected Sentinel
	}{{
		name:     "no policies",
		routes:   map[string]string{"/escalation_policies": `{"escalation_policies": []}`},
		expected: NotFound,
	}, {
		name:     "policy search fails",
		routes:   map[string]string{"/escalation_policies": "500"},
		expected: NotFound,
	}, {
		name: "one on-call request fails",
		routes: map[string]string{
			"/escalation_policies": threePolicies,
			"/oncalls/PEP1":        platformOnCalls,
			"/oncalls/PEP2":        "500",
			"/users/PU1":           danSmith,
		},
		expected: NotFound,
	}, {
		name: "nobody on call",
		routes: map[string]string{
			"/escalation_policies": threePolicies,
			"/oncalls/PEP1":        `{"oncalls": []}`,
			"/oncalls/PEP2":        `{"oncalls": []}`,
		},
		expected: NoUsers,
	}, {
		name: "nobody in scope",
		routes: map[string]string{
			"/escalation_policies": platformPolicies,
			"/oncalls/PEP1":        `{"oncalls": [{"escalation_level": 2, "escalation_policy": {"id": "PEP1"}, "user": {"id": "PU2"}}]}`,
		},
		expected: NoUsers,
	}, {
		name: "user fetch fails",
		routes: map[string]string{
			"/escalation_policies": platformPolicies,
			"/oncalls/PEP1":        platformOnCalls,
			"/users/PU1":           `{"user": `,
		},
		expected: NotFound,
	}, {
		name: "user record is empty",
		routes: map[string]string{
			"/escalation_policies": platformPolicies,
			"/oncalls/PEP1":        platformOnCalls,
			"/users/PU1":           `{}`,
		},
		expected: NotFound,
	}, {
		name: "user record is someone else",
		routes: map[string]string{
			"/escalation_policies": platformPolicies,
			"/oncalls/PEP1":        platformOnCalls,
			"/users/PU1":           beaJones,
		},
		expected: NotFound,
	}}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			service, _ := newTestService(t, tc.routes, Options{})
			result := service.OnCall(context.Background(), "key", ScopePrimary, []string{"platform"})
			if !result.Is(tc.expected) {
				t.Errorf("expected %s, got %+v", tc.expected, result)
			}
		})
	}
}

func TestOnCallCapsPoliciesAndKeepsOrder(t *testing.T) {
	t.Parallel()
	routes := map[string]string{
		"/escalation_policies": `{"escalation_policies": [
			{"id": "PEP1", "name": "A"}, {"id": "PEP2", "name": "B"}, {"id": "PEP3", "name": "C"}, {"id": "PEP4", "name": "D"}
		]}`,
		"/oncalls/PEP1": platformOnCalls,
		"/oncalls/PEP2": `{"oncalls": []}`,
		"/oncalls/PEP3": `{"oncalls": [{"escalation_level": 1, "escalation_policy": {"id": "PEP3"}, "user": {"id": "PU1"}}]}`,
		"/oncalls/PEP4": platformOnCalls,
		"/users/PU1":    danSmith,
	}
	service, upstream := newTestService(t, routes, Options{})
	result := service.OnCall(context.Background(), "key", ScopePrimary, []string{"platform"})

	danOnly := []OnCallUser{{User: danSmithLabeled, Level: 1, Levels: []int{1}}}
	expected := Result{OnCall: []PolicyOnCall{
		{EscalationPolicy: pagerduty.EscalationPolicy{ID: "PEP1", Name: "A"}, OnCall: danOnly},
		{EscalationPolicy: pagerduty.EscalationPolicy{ID: "PEP2", Name: "B"}},
		{EscalationPolicy: pagerduty.EscalationPolicy{ID: "PEP3", Name: "C"}, OnCall: danOnly},
	}}
	if diff := cmp.Diff(expected, result); diff != "" {
		t.Errorf("result differs from expected:\n%s", diff)
	}
	if n := upstream.count("/oncalls/PEP4"); n != 0 {
		t.Errorf("policy beyond the search limit was fetched %d times", n)
	}
	if n := upstream.count("/users/PU1"); n != 1 {
		t.Errorf("expected a shared user to be fetched once, got %d", n)
	}
}

func TestOnCallCachesUsers(t *testing.T) {
	t.Parallel()
	service, upstream := newTestService(t, map[string]string{
		"/escalation_policies": platformPolicies,
		"/oncalls/PEP1":        platformOnCalls,
		"/users/PU1":           danSmith,
	}, Options{UserCacheTTL: time.Minute})

	for i := 0; i < 2; i++ {
		if result := service.OnCall(context.Background(), "key", ScopePrimary, []string{"platform"}); result.Failed() {
			t.Fatalf("unexpected sentinel %s", result.Sentinel)
		}
	}
	if n := upstream.count("/users/PU1"); n != 1 {
		t.Errorf("expected one user fetch with caching enabled, got %d", n)
	}
	if result := service.OnCall(context.Background(), "other-key", ScopePrimary, []string{"platform"}); result.Failed() {
		t.Fatalf("unexpected sentinel %s", result.Sentinel)
	}
	if n := upstream.count("/users/PU1"); n != 2 {
		t.Errorf("expected a separate cache entry per API key, got %d fetches", n)
	}
}

func TestMergeOnCallsIsOrderIndependent(t *testing.T) {
	t.Parallel()
	entry := func(user string, level int) pagerduty.OnCall {
		return pagerduty.OnCall{User: pagerduty.User{ID: user}, EscalationLevel: level, EscalationPolicy: pagerduty.Reference{ID: "PEP1"}}
	}
	orders := [][]pagerduty.OnCall{
		{entry("PU1", 3), entry("PU1", 1), entry("PU1", 2), entry("PU1", 1)},
		{entry("PU1", 1), entry("PU1", 1), entry("PU1", 2), entry("PU1", 3)},
		{entry("PU1", 2), entry("PU1", 3), entry("PU1", 1), entry("PU1", 1)},
	}
	expected := []OnCallUser{{User: pagerduty.User{ID: "PU1"}, Level: 1, Levels: []int{1, 2, 3}}}
	for i, entries := range orders {
		if diff := cmp.Diff(expected, mergeOnCalls("PEP1", entries)); diff != "" {
			t.Errorf("order %d: merged users differ from expected:\n%s", i, diff)
		}
	}

	// merging an already merged set again changes nothing
	twice := mergeOnCalls("PEP1", append(orders[0], orders[1]...))
	if diff := cmp.Diff(expected, twice); diff != "" {
		t.Errorf("merging duplicates changed the result:\n%s", diff)
	}
}

func TestMergeOnCallsIgnoresOtherPolicies(t *testing.T) {
	t.Parallel()
	entries := []pagerduty.OnCall{
		{User: pagerduty.User{ID: "PU2"}, EscalationLevel: 2, EscalationPolicy: pagerduty.Reference{ID: "PEP1"}},
		{User: pagerduty.User{ID: "PU9"}, EscalationLevel: 1, EscalationPolicy: pagerduty.Reference{ID: "PEP9"}},
		{User: pagerduty.User{ID: "PU1"}, EscalationLevel: 1, EscalationPolicy: pagerduty.Reference{ID: "PEP1"}},
	}
	expected := []OnCallUser{
		{User: pagerduty.User{ID: "PU1"}, Level: 1, Levels: []int{1}},
		{User: pagerduty.User{ID: "PU2"}, Level: 2, Levels: []int{2}},
	}
	if diff := cmp.Diff(expected, mergeOnCalls("PEP1", entries)); diff != "" {
		t.Errorf("merged users differ from expected:\n%s", diff)
	}
}
