package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/ahmethakanbesel/dailystats/internal/series"
)

// WriteCSV writes ts as "date,<fields...>,percent_change" rows. Missing
// values are empty cells.
func WriteCSV(w io.Writer, ts *series.Timeseries) error {
	cw := csv.NewWriter(w)

	header := append([]string{"date"}, ts.Fields...)
	header = append(header, percentChangeColumn)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, p := range ts.Points {
		row := make([]string, 0, len(ts.Fields)+2)
		row = append(row, p.Timestamp.Format(time.DateOnly))
		for _, f := range ts.Fields {
			row = append(row, formatCell(p.Values[f]))
		}
		row = append(row, formatCell(p.PercentChange))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
