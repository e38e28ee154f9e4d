package rate

import (
	"fmt"
	"sort"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
)

// IsCurrencyCode reports whether s is a three-letter upper-case code.
func IsCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// ValidateQuotes checks a fetched response before anything is written.
// A reported base must match the requested one, the mapping must be
// non-empty, and every rate must be strictly positive.
func ValidateQuotes(q *Quotes, base string) error {
	if q == nil {
		return apperror.New(apperror.Validation, "no quotes in response")
	}
	if q.Base != "" && q.Base != base {
		return apperror.New(apperror.Validation,
			fmt.Sprintf("response base %q does not match requested base %q", q.Base, base))
	}
	if len(q.Rates) == 0 {
		return apperror.New(apperror.Validation, "response contains no rates")
	}
	if q.Date.IsZero() {
		return apperror.New(apperror.Validation, "rates date is unknown")
	}

	// Sorted so the first reported problem is deterministic.
	targets := make([]string, 0, len(q.Rates))
	for t := range q.Rates {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	for _, t := range targets {
		if !IsCurrencyCode(t) {
			return apperror.New(apperror.Validation, fmt.Sprintf("invalid currency code %q", t))
		}
		if r := q.Rates[t]; r.Sign() <= 0 {
			return apperror.New(apperror.Validation, fmt.Sprintf("non-positive rate %s for %s", r.String(), t))
		}
	}
	return nil
}
