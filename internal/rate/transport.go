package rate

import (
	"strings"
	"time"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
)

type ListRatesRequest struct {
	Base   string
	Date   time.Time // zero means the latest stored date
	Format string    // "json" or "csv"
}

func (r ListRatesRequest) Validate() *apperror.AppError {
	if !IsCurrencyCode(strings.ToUpper(r.Base)) {
		return apperror.New(apperror.BadRequest, "base must be a 3-letter currency code")
	}
	if r.Format != "" && r.Format != "json" && r.Format != "csv" {
		return apperror.New(apperror.BadRequest, "format must be json or csv")
	}
	return nil
}

type ListRatesResponse struct {
	Base  string    `json:"base"`
	Date  time.Time `json:"date"`
	Rates []Rate    `json:"rates"`
}
