package core

import (
	"testing"
	"time"
)

func TestTargetDateClampsToMonthLength(t *testing.T) {
	for year := 1899; year <= 2101; year++ {
		for month := 1; month <= 12; month++ {
			// Day 0 of the following month is the last day of this one.
			want := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
			if got := DaysInMonth(year, month); got != want {
				t.Fatalf("DaysInMonth(%d, %d) = %d, want %d", year, month, got, want)
			}
			for day := 1; day <= 31; day++ {
				d := TargetDate(year, month, day)
				if d.Year() != year || d.Month() != month {
					t.Fatalf("TargetDate(%d, %d, %d) left the month: %s", year, month, day, d)
				}
				if d.Day() != min(day, want) {
					t.Fatalf("TargetDate(%d, %d, %d) = %s, want day %d", year, month, day, d, min(day, want))
				}
			}
		}
	}
}

func TestTargetDateString(t *testing.T) {
	cases := []struct {
		year, month, day int
		want             string
	}{
		{2025, 2, 31, "2025-02-28"},
		{2024, 2, 31, "2024-02-29"},
		{2025, 4, 31, "2025-04-30"},
		{2025, 1, 15, "2025-01-15"},
		{2000, 2, 30, "2000-02-29"},
		{1900, 2, 29, "1900-02-28"},
		{2025, 12, 1, "2025-12-01"},
	}
	for _, tc := range cases {
		if got := TargetDateString(tc.year, tc.month, tc.day); got != tc.want {
			t.Errorf("TargetDateString(%d, %d, %d) = %q, want %q", tc.year, tc.month, tc.day, got, tc.want)
		}
	}
}

func TestIsLeapYear(t *testing.T) {
	cases := map[int]bool{1900: false, 2000: true, 2023: false, 2024: true, 2100: false, 2400: true}
	for year, want := range cases {
		if got := IsLeapYear(year); got != want {
			t.Errorf("IsLeapYear(%d) = %v, want %v", year, got, want)
		}
	}
}

func TestMonthKey(t *testing.T) {
	if got := MonthKey(2025, 2); got != "2025-02" {
		t.Fatalf("MonthKey(2025, 2) = %q", got)
	}
	if got := MonthKey(2025, 12); got != "2025-12" {
		t.Fatalf("MonthKey(2025, 12) = %q", got)
	}
	// Keys must sort chronologically as strings.
	if !(MonthKey(2024, 12) < MonthKey(2025, 1)) {
		t.Fatalf("month keys do not sort chronologically")
	}
}

func TestMonthOutOfRangePanics(t *testing.T) {
	for _, month := range []int{0, 13, -1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("MonthKey(2025, %d) did not panic", month)
				}
			}()
			MonthKey(2025, month)
		}()
	}
}

func endDate(y, m, d int) *Date {
	e := NewDate(y, m, d)
	return &e
}

func TestIsActiveInMonth(t *testing.T) {
	base := RecurringDefinition{
		Name:       "Rent",
		Amount:     Money{Won: 500000},
		Kind:       Expense,
		Category:   "Housing",
		DayOfMonth: 31,
		StartDate:  NewDate(2025, 1, 1),
		IsActive:   true,
	}

	tests := []struct {
		name        string
		mutate      func(d *RecurringDefinition)
		year, month int
		want        bool
	}{
		{name: "start month", year: 2025, month: 1, want: true},
		{name: "later month", year: 2026, month: 6, want: true},
		{name: "before start", year: 2024, month: 12, want: false},
		{
			name:   "inactive ignores range",
			mutate: func(d *RecurringDefinition) { d.IsActive = false },
			year:   2025, month: 3, want: false,
		},
		{
			name:   "start mid month excludes that month",
			mutate: func(d *RecurringDefinition) { d.StartDate = NewDate(2025, 3, 15) },
			year:   2025, month: 3, want: false,
		},
		{
			name:   "start mid month includes next month",
			mutate: func(d *RecurringDefinition) { d.StartDate = NewDate(2025, 3, 15) },
			year:   2025, month: 4, want: true,
		},
		{
			name:   "end on first day still active",
			mutate: func(d *RecurringDefinition) { d.EndDate = endDate(2025, 5, 1) },
			year:   2025, month: 5, want: true,
		},
		{
			name:   "end mid month still active that month",
			mutate: func(d *RecurringDefinition) { d.EndDate = endDate(2025, 5, 10) },
			year:   2025, month: 5, want: true,
		},
		{
			name:   "after end",
			mutate: func(d *RecurringDefinition) { d.EndDate = endDate(2025, 5, 10) },
			year:   2025, month: 6, want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := base
			if tt.mutate != nil {
				tt.mutate(&def)
			}
			if got := IsActiveInMonth(def, tt.year, tt.month); got != tt.want {
				t.Errorf("IsActiveInMonth(%d-%02d) = %v, want %v", tt.year, tt.month, got, tt.want)
			}
		})
	}
}

func TestComputeGenerationStatus(t *testing.T) {
	defs := []RecurringDefinition{
		{Name: "Rent", IsActive: true, StartDate: NewDate(2025, 1, 1), DayOfMonth: 31, LastGeneratedMonth: "2025-02"},
		{Name: "Phone", IsActive: true, StartDate: NewDate(2025, 1, 1), DayOfMonth: 25, LastGeneratedMonth: "2025-01"},
		{Name: "Gym", IsActive: false, StartDate: NewDate(2024, 1, 1), DayOfMonth: 5, LastGeneratedMonth: "2025-03"},
		{Name: "Future", IsActive: true, StartDate: NewDate(2025, 6, 1), DayOfMonth: 1},
	}

	got := ComputeGenerationStatus(defs, 2025, 2)
	want := GenerationStatus{TotalCount: 2, GeneratedCount: 1, PendingCount: 1, LastGeneratedMonthKey: "2025-03"}
	if got != want {
		t.Fatalf("ComputeGenerationStatus = %+v, want %+v", got, want)
	}

	if got := ComputeGenerationStatus(nil, 2025, 2); got != (GenerationStatus{}) {
		t.Fatalf("empty status = %+v", got)
	}
}

func TestPhase(t *testing.T) {
	def := RecurringDefinition{IsActive: true, StartDate: NewDate(2025, 1, 1), DayOfMonth: 10}
	if p := Phase(def, 2024, 12); p != PhaseNotDue {
		t.Fatalf("before start: %s", p)
	}
	if p := Phase(def, 2025, 2); p != PhasePending {
		t.Fatalf("pending: %s", p)
	}
	def.LastGeneratedMonth = "2025-02"
	if p := Phase(def, 2025, 2); p != PhaseGenerated {
		t.Fatalf("generated: %s", p)
	}
}

func TestNextGenerationDate(t *testing.T) {
	def := RecurringDefinition{DayOfMonth: 31}
	cases := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC), "2025-01-31"},
		{time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC), "2025-02-28"},
		{time.Date(2025, 12, 31, 9, 0, 0, 0, time.UTC), "2026-01-31"},
	}
	for _, tc := range cases {
		if got := NextGenerationDate(def, tc.now).String(); got != tc.want {
			t.Errorf("NextGenerationDate(%s) = %s, want %s", tc.now.Format(time.DateOnly), got, tc.want)
		}
	}
}

func TestMonthlyProjection(t *testing.T) {
	defs := []RecurringDefinition{
		{Kind: Income, Amount: Money{Won: 3000000}, IsActive: true, StartDate: NewDate(2025, 1, 1), DayOfMonth: 25},
		{Kind: Expense, Amount: Money{Won: 500000}, IsActive: true, StartDate: NewDate(2025, 1, 1), DayOfMonth: 1},
		{Kind: Expense, Amount: Money{Won: 70000}, IsActive: true, StartDate: NewDate(2025, 1, 1), DayOfMonth: 25},
		{Kind: Expense, Amount: Money{Won: 99999}, IsActive: false, StartDate: NewDate(2025, 1, 1), DayOfMonth: 1},
	}
	got := MonthlyProjection(defs, 2025, 3)
	want := Projection{Income: Money{3000000}, Expense: Money{570000}, Balance: Money{2430000}, Count: 3}
	if got != want {
		t.Fatalf("MonthlyProjection = %+v, want %+v", got, want)
	}
}

func TestGroupByCategory(t *testing.T) {
	defs := []RecurringDefinition{
		{Name: "Salary", Category: "Salary", Amount: Money{Won: 100}},
		{Name: "Phone", Category: "Communication", Amount: Money{Won: 10}},
		{Name: "Rent", Category: "Housing", Amount: Money{Won: 50}},
		{Name: "Internet", Category: "Communication", Amount: Money{Won: 20}},
	}
	groups := GroupByCategory(defs)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	order := []string{"Communication", "Housing", "Salary"}
	for i, g := range groups {
		if g.Category != order[i] {
			t.Fatalf("group %d = %s, want %s", i, g.Category, order[i])
		}
	}
	if groups[0].Total.Won != 30 || len(groups[0].Definitions) != 2 {
		t.Fatalf("communication group = %+v", groups[0])
	}
}
