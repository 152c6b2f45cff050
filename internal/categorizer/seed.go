package categorizer

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/store"
)

//go:embed seed_rules.yaml
var seedRulesYAML []byte

type seedRule struct {
	Keyword   string `yaml:"keyword"`
	CleanName string `yaml:"clean_name"`
	Category  string `yaml:"category"`
	Icon      string `yaml:"icon"`
}

// ParseSeedRules decodes a YAML list of merchant rules. A missing icon is
// derived from the category.
func ParseSeedRules(data []byte) ([]domain.MerchantRule, error) {
	var raw []seedRule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ParseSeedRules: decode yaml: %w", err)
	}

	rules := make([]domain.MerchantRule, 0, len(raw))
	for i, r := range raw {
		kw := domain.NormalizeKeyword(r.Keyword)
		if kw == "" {
			return nil, fmt.Errorf("ParseSeedRules: rule %d has no keyword", i)
		}
		if !domain.IsValidCategory(r.Category) {
			return nil, fmt.Errorf("ParseSeedRules: rule %s has unknown category %q", kw, r.Category)
		}
		icon := r.Icon
		if icon == "" {
			icon = domain.IconFor(r.Category)
		}
		rules = append(rules, domain.MerchantRule{
			Keyword:   kw,
			CleanName: r.CleanName,
			Category:  r.Category,
			Icon:      icon,
		})
	}
	return rules, nil
}

// DefaultSeedRules returns the built-in merchant rules.
func DefaultSeedRules() ([]domain.MerchantRule, error) {
	return ParseSeedRules(seedRulesYAML)
}

// SeedRules inserts rules whose keyword is not yet known and returns how many were created.
func SeedRules(ctx context.Context, repo store.RuleRepository, rules []domain.MerchantRule) (int, error) {
	created := 0
	for _, r := range rules {
		ok, err := repo.CreateRuleIfAbsent(ctx, r)
		if err != nil {
			return created, fmt.Errorf("SeedRules: create %s: %w", r.Keyword, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}
