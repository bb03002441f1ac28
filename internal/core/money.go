// Package core provides money parsing and handling utilities.
//
// Amounts are whole won. This file parses them from user input and
// formats them for display.
package core

import (
	"strconv"
	"strings"
)

// ParseAmount converts a user-entered amount to whole won.
//
// Thousands separators (comma, space, underscore) and a trailing "원" are
// accepted. Signs, decimal points and zero are rejected.
//
// Examples:
//
//	ParseAmount("500000")    -> 500000, nil
//	ParseAmount("1,234,000") -> 1234000, nil
//	ParseAmount("12,000원")  -> 12000, nil
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "원"))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case '0' <= r && r <= '9':
			b.WriteRune(r)
		case r == ',' || r == ' ' || r == '_':
		default:
			return Money{}, ErrInvalidAmount
		}
	}
	if b.Len() == 0 {
		return Money{}, ErrInvalidAmount
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil || v <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Won: v}, nil
}

// FormatWon renders an amount with thousands separators, e.g. "1,234원".
func FormatWon(m Money) string {
	n := m.Won
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	b.WriteString("원")
	return b.String()
}

func (m Money) String() string {
	return FormatWon(m)
}
