package domain

import "strings"

// Category names of the fixed taxonomy.
const (
	CategoryFoodDining    = "Food & Dining"
	CategoryTransport     = "Transport"
	CategoryShopping      = "Shopping"
	CategoryEntertainment = "Entertainment"
	CategoryUtilities     = "Utilities"
	CategoryHealth        = "Health"
	CategoryEducation     = "Education"
	CategoryIncome        = "Income"
	CategoryTransfer      = "Transfer"
	CategorySubscription  = "Subscription"
	CategoryGroceries     = "Groceries"
	CategoryTravel        = "Travel"
	CategoryInsurance     = "Insurance"
	CategoryInvestment    = "Investment"
	CategoryRent          = "Rent"
	CategoryFees          = "Fees"
	CategoryATM           = "ATM"
	CategoryOther         = "Other"

	// CategoryUncategorized labels transactions with no clean category in aggregates.
	CategoryUncategorized = "Uncategorized"

	DefaultIcon = "circle-help"
)

// CategoryIcons maps every taxonomy category to its icon name.
var CategoryIcons = map[string]string{
	CategoryFoodDining:    "utensils",
	CategoryTransport:     "car",
	CategoryShopping:      "shopping-bag",
	CategoryEntertainment: "tv",
	CategoryUtilities:     "zap",
	CategoryHealth:        "heart-pulse",
	CategoryEducation:     "graduation-cap",
	CategoryIncome:        "wallet",
	CategoryTransfer:      "arrow-right-left",
	CategorySubscription:  "repeat",
	CategoryGroceries:     "shopping-cart",
	CategoryTravel:        "plane",
	CategoryInsurance:     "shield",
	CategoryInvestment:    "trending-up",
	CategoryRent:          "home",
	CategoryFees:          "receipt",
	CategoryATM:           "banknote",
	CategoryOther:         DefaultIcon,
}

// Categories lists the taxonomy in display order.
var Categories = []string{
	CategoryFoodDining, CategoryTransport, CategoryShopping, CategoryEntertainment,
	CategoryUtilities, CategoryHealth, CategoryEducation, CategoryIncome,
	CategoryTransfer, CategorySubscription, CategoryGroceries, CategoryTravel,
	CategoryInsurance, CategoryInvestment, CategoryRent, CategoryFees,
	CategoryATM, CategoryOther,
}

// IsValidCategory reports whether name is an exact taxonomy category.
func IsValidCategory(name string) bool {
	_, ok := CategoryIcons[name]
	return ok
}

// IconFor returns the icon for a category, falling back to DefaultIcon.
func IconFor(category string) string {
	if icon, ok := CategoryIcons[category]; ok {
		return icon
	}
	return DefaultIcon
}

// NormalizeKeyword converts a rule keyword to its stored form.
func NormalizeKeyword(keyword string) string {
	return strings.ToUpper(strings.TrimSpace(keyword))
}
