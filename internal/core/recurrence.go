package core

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

const (
	PhaseNotDue    GenerationPhase = "not_due"
	PhasePending   GenerationPhase = "pending"
	PhaseGenerated GenerationPhase = "generated"
)

type (
	// GenerationPhase is the per-month state of a definition. Within one
	// month it only moves forward, from Pending to Generated.
	GenerationPhase string

	GenerationStatus struct {
		TotalCount            int    `json:"totalCount"`
		GeneratedCount        int    `json:"generatedCount"`
		PendingCount          int    `json:"pendingCount"`
		LastGeneratedMonthKey string `json:"lastGeneratedMonthKey,omitempty"`
	}

	Projection struct {
		Income  Money `json:"income"`
		Expense Money `json:"expense"`
		Balance Money `json:"balance"`
		Count   int   `json:"count"`
	}

	CategoryGroup struct {
		Category    string                `json:"category"`
		Total       Money                 `json:"total"`
		Definitions []RecurringDefinition `json:"definitions"`
	}
)

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func mustMonth(month int) {
	if month < 1 || month > 12 {
		panic(fmt.Sprintf("core: month %d out of range [1,12]", month))
	}
}

// IsLeapYear applies the proleptic Gregorian rule.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func DaysInMonth(year, month int) int {
	mustMonth(month)
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return monthDays[month-1]
}

// MonthKey returns the canonical YYYY-MM key for a month.
func MonthKey(year, month int) string {
	mustMonth(month)
	return fmt.Sprintf("%04d-%02d", year, month)
}

// TargetDate returns the occurrence date for dayOfMonth in the given month,
// clamped to the month's last day.
func TargetDate(year, month, dayOfMonth int) Date {
	if dayOfMonth < 1 || dayOfMonth > 31 {
		panic(fmt.Sprintf("core: day of month %d out of range [1,31]", dayOfMonth))
	}
	return NewDate(year, month, min(dayOfMonth, DaysInMonth(year, month)))
}

// TargetDateString is TargetDate formatted as YYYY-MM-DD.
func TargetDateString(year, month, dayOfMonth int) string {
	return TargetDate(year, month, dayOfMonth).String()
}

// IsActiveInMonth compares the first day of the month against the
// definition's date range. A definition ending mid-month before its
// occurrence day still counts as active for that month.
func IsActiveInMonth(def RecurringDefinition, year, month int) bool {
	mustMonth(month)
	if !def.IsActive {
		return false
	}
	first := NewDate(year, month, 1)
	if first.Before(def.StartDate.Time) {
		return false
	}
	if def.EndDate != nil && first.After(def.EndDate.Time) {
		return false
	}
	return true
}

func Phase(def RecurringDefinition, year, month int) GenerationPhase {
	switch {
	case !IsActiveInMonth(def, year, month):
		return PhaseNotDue
	case def.LastGeneratedMonth == MonthKey(year, month):
		return PhaseGenerated
	default:
		return PhasePending
	}
}

// ComputeGenerationStatus counts active definitions for the month and how
// many of them are already generated. LastGeneratedMonthKey covers all
// definitions, active or not.
func ComputeGenerationStatus(defs []RecurringDefinition, year, month int) GenerationStatus {
	var status GenerationStatus
	for _, def := range defs {
		switch Phase(def, year, month) {
		case PhaseGenerated:
			status.TotalCount++
			status.GeneratedCount++
		case PhasePending:
			status.TotalCount++
			status.PendingCount++
		}
		if def.LastGeneratedMonth > status.LastGeneratedMonthKey {
			status.LastGeneratedMonthKey = def.LastGeneratedMonth
		}
	}
	return status
}

// NextGenerationDate returns the next occurrence strictly after today's
// day of month: once the occurrence day is reached the next month is used.
func NextGenerationDate(def RecurringDefinition, now time.Time) Date {
	year, month := now.Year(), int(now.Month())
	if now.Day() >= def.DayOfMonth {
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return TargetDate(year, month, def.DayOfMonth)
}

// MonthlyProjection sums the definitions active in the month.
func MonthlyProjection(defs []RecurringDefinition, year, month int) Projection {
	var p Projection
	for _, def := range defs {
		if !IsActiveInMonth(def, year, month) {
			continue
		}
		p.Count++
		switch def.Kind {
		case Income:
			p.Income.Won += def.Amount.Won
		case Expense:
			p.Expense.Won += def.Amount.Won
		}
	}
	p.Balance.Won = p.Income.Won - p.Expense.Won
	return p
}

// GroupByCategory groups definitions by category in display order.
func GroupByCategory(defs []RecurringDefinition) []CategoryGroup {
	index := make(map[string]int)
	var groups []CategoryGroup
	for _, def := range defs {
		i, ok := index[def.Category]
		if !ok {
			i = len(groups)
			index[def.Category] = i
			groups = append(groups, CategoryGroup{Category: def.Category})
		}
		groups[i].Definitions = append(groups[i].Definitions, def)
		groups[i].Total.Won += def.Amount.Won
	}
	slices.SortStableFunc(groups, func(a, b CategoryGroup) int {
		if c := cmp.Compare(categoryRank(a.Category), categoryRank(b.Category)); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return groups
}
