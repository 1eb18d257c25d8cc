package lookup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/openshift/oncall-chat-bot/pkg/pagerduty"
)

// Scope selects which on-call levels an on-call lookup reports.
type Scope string

const (
	ScopePrimary   Scope = "primary"
	ScopeSecondary Scope = "secondary"
	ScopeAll       Scope = "all"
)

// Scopes lists the accepted scope names.
var Scopes = []string{string(ScopePrimary), string(ScopeSecondary), string(ScopeAll)}

// ParseScope converts a scope name, case-insensitively.
func ParseScope(name string) (Scope, error) {
	switch scope := Scope(strings.ToLower(strings.TrimSpace(name))); scope {
	case ScopePrimary, ScopeSecondary, ScopeAll:
		return scope, nil
	default:
		return "", fmt.Errorf("unknown on-call scope %q, must be one of %s", name, strings.Join(Scopes, ", "))
	}
}

// level is the escalation level a scope requires, or 0 for everyone.
func (s Scope) level() int {
	switch s {
	case ScopePrimary:
		return 1
	case ScopeSecondary:
		return 2
	default:
		return 0
	}
}

// onCallStage names the steps of an on-call lookup, for logging.
type onCallStage string

const (
	stageResolvingPolicies onCallStage = "resolving-policies"
	stageFetchingOnCall    onCallStage = "fetching-oncall"
	stageEnrichingUsers    onCallStage = "enriching-users"
)

// OnCall reports who is on call, within scope, for the escalation policies
// matching tokens. It runs three stages in order and stops at the first one
// that fails: resolve the policies, fetch their on-call entries, then fetch
// the contact details of every person found.
func (s *Service) OnCall(ctx context.Context, apiKey string, scope Scope, tokens []string) Result {
	term, ok := NewSearchTerm(tokens)
	if !ok {
		return failed(MinLengthError)
	}
	logger := s.logger.WithFields(logrus.Fields{"workflow": "oncall", "term": term.String(), "scope": string(scope)})

	policies, sentinel := s.resolvePolicies(ctx, logger.WithField("stage", stageResolvingPolicies), apiKey, term)
	if sentinel != "" {
		return failed(sentinel)
	}
	policies, sentinel = s.fetchOnCall(ctx, logger.WithField("stage", stageFetchingOnCall), apiKey, scope, policies)
	if sentinel != "" {
		return failed(sentinel)
	}
	policies, sentinel = s.enrichUsers(ctx, logger.WithField("stage", stageEnrichingUsers), apiKey, policies)
	if sentinel != "" {
		return failed(sentinel)
	}
	return Result{OnCall: policies}
}

func (s *Service) resolvePolicies(ctx context.Context, logger *logrus.Entry, apiKey string, term SearchTerm) ([]PolicyOnCall, Sentinel) {
	list, err := s.upstream.SearchEscalationPolicies(ctx, apiKey, term.String())
	if err != nil {
		logger.WithError(err).Warn("Failed to search escalation policies.")
		return nil, NotFound
	}
	matches := list.EscalationPolicies
	if len(matches) == 0 {
		return nil, NotFound
	}
	if len(matches) > s.searchLimit {
		matches = matches[:s.searchLimit]
	}
	policies := make([]PolicyOnCall, 0, len(matches))
	for _, policy := range matches {
		policies = append(policies, PolicyOnCall{EscalationPolicy: policy})
	}
	return policies, ""
}

func (s *Service) fetchOnCall(ctx context.Context, logger *logrus.Entry, apiKey string, scope Scope, policies []PolicyOnCall) ([]PolicyOnCall, Sentinel) {
	entries := make([][]pagerduty.OnCall, len(policies))
	g, gctx := errgroup.WithContext(ctx)
	for i := range policies {
		i, policyID := i, policies[i].ID
		g.Go(func() error {
			list, err := s.upstream.ListOnCalls(gctx, apiKey, policyID)
			if err != nil {
				return fmt.Errorf("failed to list on-calls for escalation policy %s: %w", policyID, err)
			}
			entries[i] = list.OnCalls
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.WithError(err).Warn("Failed to fetch on-call entries.")
		return nil, NotFound
	}

	for i := range policies {
		policies[i].OnCall = filterScope(mergeOnCalls(policies[i].ID, entries[i]), scope)
	}
	return policies, ""
}

func (s *Service) enrichUsers(ctx context.Context, logger *logrus.Entry, apiKey string, policies []PolicyOnCall) ([]PolicyOnCall, Sentinel) {
	ids := sets.New[string]()
	for _, policy := range policies {
		for _, user := range policy.OnCall {
			ids.Insert(user.ID)
		}
	}
	if ids.Len() == 0 {
		return nil, NoUsers
	}

	var lock sync.Mutex
	users := make(map[string]pagerduty.User, ids.Len())
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range sets.List(ids) {
		id := id
		g.Go(func() error {
			user, err := s.user(gctx, apiKey, id)
			if err != nil {
				return fmt.Errorf("failed to get user %s: %w", id, err)
			}
			lock.Lock()
			users[id] = user
			lock.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.WithError(err).Warn("Failed to fetch on-call users.")
		return nil, NotFound
	}

	for i := range policies {
		for j := range policies[i].OnCall {
			entry := &policies[i].OnCall[j]
			if user, ok := users[entry.ID]; ok {
				entry.User = user
			}
		}
	}
	return policies, ""
}

// mergeOnCalls collapses the on-call entries of one policy into one record per
// user. Entries echoing a different policy are ignored. Levels are sorted and
// de-duplicated, so the order entries arrive in does not matter; records are
// ordered by their lowest level, then by first appearance.
func mergeOnCalls(policyID string, entries []pagerduty.OnCall) []OnCallUser {
	var users []OnCallUser
	index := map[string]int{}
	for _, entry := range entries {
		if entry.EscalationPolicy.ID != policyID || entry.User.ID == "" {
			continue
		}
		if i, ok := index[entry.User.ID]; ok {
			users[i].Levels = append(users[i].Levels, entry.EscalationLevel)
			continue
		}
		index[entry.User.ID] = len(users)
		users = append(users, OnCallUser{User: entry.User, Levels: []int{entry.EscalationLevel}})
	}
	for i := range users {
		users[i].Levels = sets.List(sets.New(users[i].Levels...))
		users[i].Level = users[i].Levels[0]
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Level < users[j].Level
	})
	return users
}

// filterScope keeps the users holding the level the scope asks for. It returns
// nil when nobody is left.
func filterScope(users []OnCallUser, scope Scope) []OnCallUser {
	level := scope.level()
	var filtered []OnCallUser
	for _, user := range users {
		if level == 0 || sets.New(user.Levels...).Has(level) {
			filtered = append(filtered, user)
		}
	}
	return filtered
}
