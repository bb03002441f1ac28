package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const dateLayout = "2006-01-02"

const (
	MaxDescriptionLength = 200
	// GeneratedSuffix marks descriptions of generated transactions.
	GeneratedSuffix = " (fixed)"
	// MaxNameLength leaves room for GeneratedSuffix within a description.
	MaxNameLength = MaxDescriptionLength - len(GeneratedSuffix)
)

type (
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Won int64
	}

	// RecurringDefinition is a monthly income or expense template.
	RecurringDefinition struct {
		ID                 string    `json:"id"`
		Name               string    `json:"name"`
		Amount             Money     `json:"amount"`
		Category           string    `json:"category"`
		Kind               Kind      `json:"kind"`
		DayOfMonth         int       `json:"dayOfMonth"`
		StartDate          Date      `json:"startDate"`
		EndDate            *Date     `json:"endDate,omitempty"`
		IsActive           bool      `json:"isActive"`
		LastGeneratedMonth string    `json:"lastGeneratedMonth,omitempty"`
		CreatedAt          time.Time `json:"createdAt"`
	}

	// Transaction is a concrete income or expense entry. SourceDefinitionID is
	// empty for entries recorded by hand.
	Transaction struct {
		ID                 string    `json:"id"`
		Date               Date      `json:"date"`
		Category           string    `json:"category"`
		Description        string    `json:"description"`
		Amount             Money     `json:"amount"`
		Kind               Kind      `json:"kind"`
		SourceDefinitionID string    `json:"sourceDefinitionId,omitempty"`
		CreatedAt          time.Time `json:"createdAt"`
	}

	// DefinitionPatch describes a partial update. Nil fields are left unchanged.
	DefinitionPatch struct {
		Name               *string
		Amount             *Money
		Category           *string
		Kind               *Kind
		DayOfMonth         *int
		StartDate          *Date
		EndDate            *Date
		ClearEndDate       bool
		IsActive           *bool
		LastGeneratedMonth *string
	}
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("duplicate record")
	ErrInvalidDay       = errors.New("day of month must be between 1 and 31")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrInvalidKind      = errors.New("kind must be income or expense")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("name is required")
	ErrEmptyCategory    = errors.New("category is required")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrEmptyDescription = errors.New("description is required")
	ErrMissingStartDate = errors.New("start date is required")
	ErrEndBeforeStart   = errors.New("end date must be after start date")
	ErrNameTooLong      = fmt.Errorf("name too long (max %d characters)", MaxNameLength)
	ErrDescriptionLong  = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
)

// ValidationError collects every problem found in one input.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error {
	return append([]error{ErrValidation}, e.Problems...)
}

func (e *ValidationError) add(err error) {
	e.Problems = append(e.Problems, err)
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

func (k Kind) IsValid() bool {
	return k == Income || k == Expense
}

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Day() int {
	return d.Time.Day()
}

func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Won <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Won)
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &m.Won)
}

// Validate checks a definition as entered by a user. All problems are
// reported together.
func (d RecurringDefinition) Validate() error {
	verr := &ValidationError{}
	if name := strings.TrimSpace(d.Name); name == "" {
		verr.add(ErrEmptyName)
	} else if utf8.RuneCountInString(name) > MaxNameLength {
		verr.add(ErrNameTooLong)
	}
	if err := d.Amount.Validate(); err != nil {
		verr.add(err)
	}
	if !d.Kind.IsValid() {
		verr.add(ErrInvalidKind)
	}
	if err := validateCategory(d.Kind, d.Category); err != nil {
		verr.add(err)
	}
	if d.DayOfMonth < 1 || d.DayOfMonth > 31 {
		verr.add(ErrInvalidDay)
	}
	if d.StartDate.IsZero() {
		verr.add(ErrMissingStartDate)
	}
	if d.EndDate != nil && !d.StartDate.IsZero() && !d.EndDate.After(d.StartDate.Time) {
		verr.add(ErrEndBeforeStart)
	}
	return verr.orNil()
}

func (t Transaction) Validate() error {
	verr := &ValidationError{}
	if t.Date.IsZero() {
		verr.add(ErrInvalidDate)
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		verr.add(ErrEmptyDescription)
	} else if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		verr.add(ErrDescriptionLong)
	}
	if err := t.Amount.Validate(); err != nil {
		verr.add(err)
	}
	if !t.Kind.IsValid() {
		verr.add(ErrInvalidKind)
	}
	if err := validateCategory(t.Kind, t.Category); err != nil {
		verr.add(err)
	}
	return verr.orNil()
}

// GeneratedDescription is the description of the transaction generated
// from a definition named name. Names over MaxNameLength are cut so the
// result always passes Transaction.Validate.
func GeneratedDescription(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name + GeneratedSuffix
}

func validateCategory(kind Kind, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrEmptyCategory
	}
	if kind.IsValid() && !IsValidCategory(kind, category) {
		return fmt.Errorf("%w %q for %s", ErrUnknownCategory, category, kind)
	}
	return nil
}

// Apply returns d with the patch applied.
func (p DefinitionPatch) Apply(d RecurringDefinition) RecurringDefinition {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Amount != nil {
		d.Amount = *p.Amount
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.Kind != nil {
		d.Kind = *p.Kind
	}
	if p.DayOfMonth != nil {
		d.DayOfMonth = *p.DayOfMonth
	}
	if p.StartDate != nil {
		d.StartDate = *p.StartDate
	}
	if p.ClearEndDate {
		d.EndDate = nil
	} else if p.EndDate != nil {
		end := *p.EndDate
		d.EndDate = &end
	}
	if p.IsActive != nil {
		d.IsActive = *p.IsActive
	}
	if p.LastGeneratedMonth != nil {
		d.LastGeneratedMonth = *p.LastGeneratedMonth
	}
	return d
}

// EditPatch carries the user-editable fields of d. Activity and generation
// bookkeeping are left alone.
func EditPatch(d RecurringDefinition) DefinitionPatch {
	p := DefinitionPatch{
		Name:       &d.Name,
		Amount:     &d.Amount,
		Category:   &d.Category,
		Kind:       &d.Kind,
		DayOfMonth: &d.DayOfMonth,
		StartDate:  &d.StartDate,
		EndDate:    d.EndDate,
	}
	if d.EndDate == nil {
		p.ClearEndDate = true
	}
	return p
}

// MarkGenerated records that the month identified by key has been handled.
func MarkGenerated(key string) DefinitionPatch {
	return DefinitionPatch{LastGeneratedMonth: &key}
}

// SetActive toggles generation for a definition.
func SetActive(active bool) DefinitionPatch {
	return DefinitionPatch{IsActive: &active}
}
