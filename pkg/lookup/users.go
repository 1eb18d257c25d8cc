package lookup

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/openshift/oncall-chat-bot/pkg/pagerduty"
)

// Users searches users by name or email. Matches are ranked by where the term
// appears in the user's name and capped at the result limit; TooMany is set
// when more matched.
func (s *Service) Users(ctx context.Context, apiKey string, tokens []string) Result {
	term, ok := NewSearchTerm(tokens)
	if !ok {
		return failed(MinLengthError)
	}
	logger := s.logger.WithFields(logrus.Fields{"workflow": "users", "term": term.String()})
	list, err := s.upstream.SearchUsers(ctx, apiKey, term.String())
	if err != nil {
		logger.WithError(err).Warn("Failed to search users.")
		return failed(UserNotFound)
	}
	if len(list.Users) == 0 {
		return failed(UserNotFound)
	}

	users := make([]pagerduty.User, 0, len(list.Users))
	for _, user := range list.Users {
		users = append(users, pagerduty.LabelContactMethods(user))
	}
	users = rankUsers(users, term)

	result := Result{Users: users}
	if len(users) > s.resultLimit {
		result.Users = users[:s.resultLimit]
		result.TooMany = true
	}
	return result
}

// rankUsers orders users by the case-insensitive position of term in their
// name, earliest first. Names without the term go last. Equal positions keep
// the upstream order.
func rankUsers(users []pagerduty.User, term SearchTerm) []pagerduty.User {
	needle := strings.ToLower(term.String())
	type ranked struct {
		user     pagerduty.User
		position int
	}
	ranking := make([]ranked, 0, len(users))
	for _, user := range users {
		position := strings.Index(strings.ToLower(user.Name), needle)
		if position < 0 {
			position = math.MaxInt
		}
		ranking = append(ranking, ranked{user: user, position: position})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].position < ranking[j].position
	})

	sorted := make([]pagerduty.User, 0, len(ranking))
	for _, r := range ranking {
		sorted = append(sorted, r.user)
	}
	return sorted
}
