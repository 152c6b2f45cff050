// Package classifier asks a language model to clean up and categorize bank
// transaction narrations.
package classifier

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/Nweremizu/helm/internal/domain"
)

// ErrMalformedResponse is returned when the model output is not a JSON array of results.
var ErrMalformedResponse = errors.New("classifier: malformed model response")

// Input is one transaction as presented to the model.
type Input struct {
	ID          string `json:"id"`
	Narration   string `json:"narration"`
	AmountNaira string `json:"amount_naira"`
	Type        string `json:"type"`
	Date        string `json:"date"`
}

// Result is the model's answer for one transaction after normalization.
type Result struct {
	ID          string  `json:"id"`
	CleanName   string  `json:"cleanName"`
	Category    string  `json:"category"`
	Icon        string  `json:"icon"`
	RuleKeyword *string `json:"ruleKeyword"`
	Confidence  float64 `json:"confidence"`
}

// Classifier categorizes a batch of transactions.
// Implementations return ErrMalformedResponse (wrapped) when the model
// answers with something other than a JSON array.
type Classifier interface {
	CategorizeBatch(ctx context.Context, inputs []Input) ([]Result, error)
	Name() string
}

const (
	defaultCleanName  = "Unknown Transaction"
	defaultConfidence = 0.5
)

// rawResult mirrors the model output before defaults are applied.
type rawResult struct {
	ID          string   `json:"id"`
	CleanName   string   `json:"cleanName"`
	Category    string   `json:"category"`
	Icon        string   `json:"icon"`
	RuleKeyword *string  `json:"ruleKeyword"`
	Confidence  *float64 `json:"confidence"`
}

// normalize applies defaults and bounds to raw model results. A result
// without an id inherits the id of the input at the same position.
func normalize(raw []rawResult, inputs []Input) []Result {
	out := make([]Result, 0, len(raw))
	for i, r := range raw {
		res := Result{
			ID:         r.ID,
			CleanName:  strings.TrimSpace(r.CleanName),
			Category:   r.Category,
			Icon:       strings.TrimSpace(r.Icon),
			Confidence: defaultConfidence,
		}
		if res.ID == "" && i < len(inputs) {
			res.ID = inputs[i].ID
		}
		if res.CleanName == "" {
			res.CleanName = defaultCleanName
		}
		if !domain.IsValidCategory(res.Category) {
			res.Category = domain.CategoryOther
		}
		if res.Icon == "" {
			res.Icon = domain.DefaultIcon
		}
		if r.RuleKeyword != nil {
			if kw := domain.NormalizeKeyword(*r.RuleKeyword); kw != "" {
				res.RuleKeyword = &kw
			}
		}
		// A zero confidence is treated as missing.
		if r.Confidence != nil && *r.Confidence != 0 {
			res.Confidence = min(1, max(0, *r.Confidence))
		}
		out = append(out, res)
	}
	return out
}

var (
	posPattern    = regexp.MustCompile(`(?i)POS\s*(WDL|PURCHASE)?`)
	nipPattern    = regexp.MustCompile(`(?i)NIP\s*(TRF)?`)
	atmPattern    = regexp.MustCompile(`(?i)ATM\s*(WDL)?`)
	longDigits    = regexp.MustCompile(`\d{10,}`)
	spacesPattern = regexp.MustCompile(`\s+`)
)

const maxCleanNameLen = 50

// ExtractCleanName derives a readable name from a raw narration without a model.
func ExtractCleanName(narration string) string {
	s := posPattern.ReplaceAllString(narration, "")
	s = nipPattern.ReplaceAllString(s, "Transfer")
	s = atmPattern.ReplaceAllString(s, "ATM Withdrawal")
	s = longDigits.ReplaceAllString(s, "")
	s = strings.TrimSpace(spacesPattern.ReplaceAllString(s, " "))

	if r := []rune(s); len(r) > maxCleanNameLen {
		s = string(r[:maxCleanNameLen])
	}
	if s == "" {
		return "Transaction"
	}
	return s
}
