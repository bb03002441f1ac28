package core

import "slices"

var (
	ExpenseCategories = []string{
		"Food",
		"Utilities",
		"Communication",
		"Housing",
		"Transportation",
		"Medical",
		"Education",
		"Culture/Leisure",
		"Shopping",
		"Savings",
		"Investment",
		"Other",
	}

	IncomeCategories = []string{
		"Salary",
		"Side Income",
		"Investment Income",
		"Other Income",
	}
)

// Template is a suggested starting point for a new recurring definition.
type Template struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	Kind         Kind   `json:"kind"`
	SuggestedDay int    `json:"suggestedDay"`
}

var Templates = []Template{
	{Name: "Rent / Maintenance Fee", Category: "Housing", Kind: Expense, SuggestedDay: 1},
	{Name: "Mobile Phone", Category: "Communication", Kind: Expense, SuggestedDay: 25},
	{Name: "Internet", Category: "Communication", Kind: Expense, SuggestedDay: 15},
	{Name: "Car Insurance", Category: "Transportation", Kind: Expense, SuggestedDay: 1},
	{Name: "Health Insurance", Category: "Medical", Kind: Expense, SuggestedDay: 10},
	{Name: "Salary", Category: "Salary", Kind: Income, SuggestedDay: 25},
	{Name: "Side Job", Category: "Side Income", Kind: Income, SuggestedDay: 30},
	{Name: "Installment Savings", Category: "Savings", Kind: Expense, SuggestedDay: 1},
	{Name: "Investment (Stocks/Funds)", Category: "Investment", Kind: Expense, SuggestedDay: 1},
	{Name: "Subscriptions", Category: "Culture/Leisure", Kind: Expense, SuggestedDay: 1},
}

// Categories returns the category set for kind, or nil for an unknown kind.
func Categories(kind Kind) []string {
	switch kind {
	case Income:
		return IncomeCategories
	case Expense:
		return ExpenseCategories
	default:
		return nil
	}
}

func IsValidCategory(kind Kind, category string) bool {
	return slices.Contains(Categories(kind), category)
}

// categoryRank orders categories expense-first, then income, then anything
// not in either set.
func categoryRank(category string) int {
	if i := slices.Index(ExpenseCategories, category); i >= 0 {
		return i
	}
	if i := slices.Index(IncomeCategories, category); i >= 0 {
		return len(ExpenseCategories) + i
	}
	return len(ExpenseCategories) + len(IncomeCategories)
}
