package rate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const DateFormat = "2006-01-02"

// Rate is one stored exchange rate. (Date, Base, Target) is the natural key.
type Rate struct {
	Date      time.Time       `json:"date"`
	Base      string          `json:"base"`
	Target    string          `json:"target"`
	Rate      decimal.Decimal `json:"rate"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Quotes is a provider-neutral fetch result. Date is zero when the provider
// did not report one.
type Quotes struct {
	Base  string
	Date  time.Time
	Rates map[string]decimal.Decimal
}

// Records expands q into rows sorted by target currency.
func (q *Quotes) Records() []Rate {
	targets := make([]string, 0, len(q.Rates))
	for t := range q.Rates {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	rates := make([]Rate, 0, len(targets))
	for _, t := range targets {
		rates = append(rates, Rate{
			Date:   q.Date,
			Base:   q.Base,
			Target: t,
			Rate:   q.Rates[t],
		})
	}
	return rates
}

// Day truncates t to its calendar date in t's location, returned as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}
