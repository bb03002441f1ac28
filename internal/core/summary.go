package core

import (
	"cmp"
	"slices"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Amount Money  `json:"amount"`
}

// DayTotal is the per-day income and expense used for calendar rendering.
type DayTotal struct {
	Date    Date  `json:"date"`
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Count   int   `json:"count"`
}

// MonthSummary is a compact summary for a specific year+month.
type MonthSummary struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Income     Money            `json:"income"`
	Expense    Money            `json:"expense"`
	Balance    Money            `json:"balance"`
	Count      int              `json:"count"`
	ByCategory []CategoryAmount `json:"byCategory"`
	ByDay      []DayTotal       `json:"byDay"`
}

// Summarize aggregates the transactions that fall in the given month.
// Transactions from other months are ignored.
func Summarize(txs []Transaction, year, month int) MonthSummary {
	mustMonth(month)
	s := MonthSummary{Year: year, Month: month}

	type catKey struct {
		kind Kind
		name string
	}
	byCat := make(map[catKey]int64)
	byDay := make(map[int]*DayTotal)

	for _, tx := range txs {
		if tx.Date.Year() != year || tx.Date.Month() != month {
			continue
		}
		s.Count++
		day, ok := byDay[tx.Date.Day()]
		if !ok {
			day = &DayTotal{Date: tx.Date}
			byDay[tx.Date.Day()] = day
		}
		day.Count++
		switch tx.Kind {
		case Income:
			s.Income.Won += tx.Amount.Won
			day.Income.Won += tx.Amount.Won
		case Expense:
			s.Expense.Won += tx.Amount.Won
			day.Expense.Won += tx.Amount.Won
		}
		byCat[catKey{tx.Kind, tx.Category}] += tx.Amount.Won
	}
	s.Balance.Won = s.Income.Won - s.Expense.Won

	s.ByCategory = make([]CategoryAmount, 0, len(byCat))
	for k, v := range byCat {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: k.name, Kind: k.kind, Amount: Money{Won: v}})
	}
	slices.SortFunc(s.ByCategory, func(a, b CategoryAmount) int {
		if c := cmp.Compare(categoryRank(a.Name), categoryRank(b.Name)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	s.ByDay = make([]DayTotal, 0, len(byDay))
	for _, d := range byDay {
		s.ByDay = append(s.ByDay, *d)
	}
	slices.SortFunc(s.ByDay, func(a, b DayTotal) int {
		return a.Date.Compare(b.Date.Time)
	})
	return s
}
