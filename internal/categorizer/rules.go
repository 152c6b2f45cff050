package categorizer

import (
	"strings"

	"github.com/Nweremizu/helm/internal/domain"
)

// ruleIndex holds merchant rules keyed by uppercase keyword in listing order.
type ruleIndex struct {
	rules []domain.MerchantRule
}

// newRuleIndex indexes rules. The first rule listed for a keyword wins and
// rules with an empty keyword are dropped so they cannot match everything.
func newRuleIndex(rules []domain.MerchantRule) *ruleIndex {
	seen := make(map[string]bool, len(rules))
	ix := &ruleIndex{rules: make([]domain.MerchantRule, 0, len(rules))}
	for _, r := range rules {
		kw := domain.NormalizeKeyword(r.Keyword)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		r.Keyword = kw
		ix.rules = append(ix.rules, r)
	}
	return ix
}

// Match returns the first rule whose keyword occurs in the uppercased narration.
func (ix *ruleIndex) Match(narration string) (domain.MerchantRule, bool) {
	upper := strings.ToUpper(narration)
	for _, r := range ix.rules {
		if strings.Contains(upper, r.Keyword) {
			return r, true
		}
	}
	return domain.MerchantRule{}, false
}

func (ix *ruleIndex) Len() int {
	return len(ix.rules)
}
