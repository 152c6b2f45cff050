package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Nweremizu/helm/internal/domain"
)

// systemPrompt builds the instructions shared by every provider.
func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a financial transaction categorizer for a Nigerian fintech app called Helm. ")
	b.WriteString("Analyze bank transaction narrations and return structured categorization data.\n\n")

	b.WriteString("RULES:\n")
	b.WriteString("1. Extract a clean, human-readable merchant/description name from the narration\n")
	b.WriteString("2. Assign ONE category from this EXACT list: " + strings.Join(domain.Categories, ", ") + "\n")
	b.WriteString("3. Assign an icon name (lowercase, kebab-case) that matches the category\n")
	b.WriteString("4. If you can identify a clear merchant keyword (e.g., \"UBER\", \"NETFLIX\", \"BOLT\", \"SHOPRITE\"), ")
	b.WriteString("return it in UPPERCASE for future rule-based matching. Only return keywords for well-known merchants.\n")
	b.WriteString("5. Provide a confidence score between 0 and 1\n\n")

	b.WriteString("ICON MAPPING:\n")
	for _, cat := range domain.Categories {
		b.WriteString(fmt.Sprintf("- %s: %q\n", cat, domain.IconFor(cat)))
	}

	b.WriteString("\nRESPOND WITH STRICT JSON ONLY. No markdown code blocks, no explanations, no backticks.\n\n")
	b.WriteString("Output format (JSON array):\n")
	b.WriteString(`[{"id":"tx-id","cleanName":"Uber Ride","category":"Transport","icon":"car","ruleKeyword":"UBER","confidence":0.95}]`)
	return b.String()
}

// promptTransaction is the subset of Input the model sees.
type promptTransaction struct {
	ID          string `json:"id"`
	Narration   string `json:"narration"`
	AmountNaira string `json:"amount_naira"`
	Type        string `json:"type"`
}

// userPrompt renders the batch as indented JSON inside the request text.
func userPrompt(inputs []Input) (string, error) {
	rows := make([]promptTransaction, len(inputs))
	for i, in := range inputs {
		rows[i] = promptTransaction{ID: in.ID, Narration: in.Narration, AmountNaira: in.AmountNaira, Type: in.Type}
	}
	body, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("userPrompt: marshal transactions: %w", err)
	}

	return fmt.Sprintf("Categorize these %d Nigerian bank transactions. Amounts are in Naira (₦).\n\n%s\n\n"+
		"Return a JSON array with categorization for each transaction. Remember: STRICT JSON ONLY, no markdown.",
		len(inputs), body), nil
}
