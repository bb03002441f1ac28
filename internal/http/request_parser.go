// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data:
// month query parameters, JSON bodies and input sanitization.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gagyebu/internal/core"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input that never reached validation.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using
// now for whichever is absent. Unlike a form fallback it rejects values
// that are present but invalid.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return params, badRequest("year must be a number between 1 and 9999")
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return params, badRequest("month must be a number between 1 and 12")
		}
		params.Month = m
	}
	return params, nil
}

// decodeJSON reads a single JSON object into v. Unknown fields and trailing
// data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("invalid JSON body: trailing data")
	}
	return nil
}

// amountInput accepts an amount as a JSON number or as a formatted string
// such as "1,200,000원".
type amountInput core.Money

func (a *amountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		m, err := core.ParseAmount(s)
		if err != nil {
			return fmt.Errorf("amount %q: %w", s, err)
		}
		*a = amountInput(m)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a whole number of won: %w", err)
	}
	*a = amountInput{Won: n}
	return nil
}

// definitionRequest is the body of create and update calls. Bookkeeping
// fields are not accepted from clients.
type definitionRequest struct {
	Name       string      `json:"name"`
	Amount     amountInput `json:"amount"`
	Category   string      `json:"category"`
	Kind       string      `json:"kind"`
	DayOfMonth int         `json:"dayOfMonth"`
	StartDate  core.Date   `json:"startDate"`
	EndDate    *core.Date  `json:"endDate"`
}

func (req definitionRequest) toDefinition() core.RecurringDefinition {
	def := core.RecurringDefinition{
		Name:       sanitizeInput(req.Name),
		Amount:     core.Money(req.Amount),
		Category:   sanitizeInput(req.Category),
		Kind:       core.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		DayOfMonth: req.DayOfMonth,
		StartDate:  req.StartDate,
	}
	if req.EndDate != nil && !req.EndDate.IsZero() {
		end := *req.EndDate
		def.EndDate = &end
	}
	return def
}

type transactionRequest struct {
	Date        core.Date   `json:"date"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Amount      amountInput `json:"amount"`
	Kind        string      `json:"kind"`
}

func (req transactionRequest) toTransaction() core.Transaction {
	return core.Transaction{
		Date:        req.Date,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Amount:      core.Money(req.Amount),
		Kind:        core.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
	}
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
