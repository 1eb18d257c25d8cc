package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/cache"

	"github.com/openshift/oncall-chat-bot/pkg/pagerduty"
)

const (
	// DefaultSearchLimit caps how many escalation policies fan out to on-call lookups.
	DefaultSearchLimit = 3
	// DefaultResultLimit caps how many users a user search returns.
	DefaultResultLimit = 3

	userCacheSize = 1024
)

// Upstream is the subset of the PagerDuty client the workflows need.
type Upstream interface {
	SearchTeams(ctx context.Context, apiKey, term string) (*pagerduty.TeamList, error)
	SearchEscalationPolicies(ctx context.Context, apiKey, term string) (*pagerduty.EscalationPolicyList, error)
	ListOnCalls(ctx context.Context, apiKey, policyID string) (*pagerduty.OnCallList, error)
	GetUser(ctx context.Context, apiKey, userID string) (*pagerduty.User, error)
	SearchUsers(ctx context.Context, apiKey, term string) (*pagerduty.UserList, error)
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	SearchLimit  int
	ResultLimit  int
	UserCacheTTL time.Duration
	Logger       *logrus.Entry
}

// Service answers team, escalation, on-call and user queries. It is safe for
// concurrent use; callers with different API keys never share request state.
type Service struct {
	upstream    Upstream
	searchLimit int
	resultLimit int
	logger      *logrus.Entry

	userCacheTTL time.Duration
	userCache    *cache.LRUExpireCache
}

// NewService returns a Service issuing its calls through upstream.
func NewService(upstream Upstream, opts Options) *Service {
	s := &Service{
		upstream:     upstream,
		searchLimit:  opts.SearchLimit,
		resultLimit:  opts.ResultLimit,
		logger:       opts.Logger,
		userCacheTTL: opts.UserCacheTTL,
	}
	if s.searchLimit <= 0 {
		s.searchLimit = DefaultSearchLimit
	}
	if s.resultLimit <= 0 {
		s.resultLimit = DefaultResultLimit
	}
	if s.logger == nil {
		s.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if s.userCacheTTL > 0 {
		s.userCache = cache.NewLRUExpireCache(userCacheSize)
	}
	return s
}

// Teams searches teams by name.
func (s *Service) Teams(ctx context.Context, apiKey string, tokens []string) Result {
	term, ok := NewSearchTerm(tokens)
	if !ok {
		return failed(MinLengthError)
	}
	logger := s.logger.WithFields(logrus.Fields{"workflow": "teams", "term": term.String()})
	list, err := s.upstream.SearchTeams(ctx, apiKey, term.String())
	if err != nil {
		logger.WithError(err).Warn("Failed to search teams.")
		return failed(NotFound)
	}
	if len(list.Teams) == 0 {
		return failed(NotFound)
	}
	return Result{Teams: list.Teams}
}

// Escalations searches escalation policies by name.
func (s *Service) Escalations(ctx context.Context, apiKey string, tokens []string) Result {
	term, ok := NewSearchTerm(tokens)
	if !ok {
		return failed(MinLengthError)
	}
	logger := s.logger.WithFields(logrus.Fields{"workflow": "escalations", "term": term.String()})
	list, err := s.upstream.SearchEscalationPolicies(ctx, apiKey, term.String())
	if err != nil {
		logger.WithError(err).Warn("Failed to search escalation policies.")
		return failed(NotFound)
	}
	if len(list.EscalationPolicies) == 0 {
		return failed(NotFound)
	}
	return Result{EscalationPolicies: list.EscalationPolicies}
}

type userCacheKey struct {
	apiKey string
	userID string
}

// user fetches a user, going through the cache when one is configured.
func (s *Service) user(ctx context.Context, apiKey, userID string) (pagerduty.User, error) {
	key := userCacheKey{apiKey: apiKey, userID: userID}
	if s.userCache != nil {
		if cached, ok := s.userCache.Get(key); ok {
			return cached.(pagerduty.User), nil
		}
	}
	user, err := s.upstream.GetUser(ctx, apiKey, userID)
	if err != nil {
		return pagerduty.User{}, err
	}
	if user.ID != userID {
		return pagerduty.User{}, fmt.Errorf("user record for %s carries id %q", userID, user.ID)
	}
	labeled := pagerduty.LabelContactMethods(*user)
	if s.userCache != nil {
		s.userCache.Add(key, labeled, s.userCacheTTL)
	}
	return labeled, nil
}
