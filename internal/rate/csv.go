package rate

import (
	"encoding/csv"
	"io"
)

var csvHeader = []string{"date", "base_currency", "target_currency", "rate"}

// WriteCSV writes rates with a header row. Rates keep their exact decimal text.
func WriteCSV(w io.Writer, rates []Rate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rates {
		if err := cw.Write([]string{r.Date.Format(DateFormat), r.Base, r.Target, r.Rate.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
