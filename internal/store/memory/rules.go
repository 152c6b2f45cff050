package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Nweremizu/helm/internal/domain"
)

func (s *Store) ListRules(ctx context.Context) ([]domain.MerchantRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MerchantRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return s.ruleSeq[out[i].Keyword] < s.ruleSeq[out[j].Keyword] })
	return out, nil
}

func (s *Store) insertRule(rule domain.MerchantRule, matchCount int) {
	rule.Keyword = domain.NormalizeKeyword(rule.Keyword)
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = s.now()
	}
	rule.MatchCount = matchCount
	s.rules[rule.Keyword] = &rule
	s.ruleSeq[rule.Keyword] = s.nextSeq()
}

func (s *Store) UpsertLearnedRule(ctx context.Context, rule domain.MerchantRule) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.rules[domain.NormalizeKeyword(rule.Keyword)]; ok {
		existing.MatchCount++
		return false, nil
	}
	s.insertRule(rule, 1)
	return true, nil
}

func (s *Store) CreateRuleIfAbsent(ctx context.Context, rule domain.MerchantRule) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[domain.NormalizeKeyword(rule.Keyword)]; ok {
		return false, nil
	}
	s.insertRule(rule, rule.MatchCount)
	return true, nil
}

// Rule returns the rule stored under keyword.
func (s *Store) Rule(keyword string) (domain.MerchantRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[domain.NormalizeKeyword(keyword)]
	if !ok {
		return domain.MerchantRule{}, false
	}
	return *r, true
}
