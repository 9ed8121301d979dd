package series

import "time"

// Record is one day of normalized provider data. Fields holds only the
// values the provider actually reported; anything missing is stored as NULL.
type Record struct {
	Timestamp time.Time          `json:"timestamp"`
	Fields    map[string]float64 `json:"fields"`
}

// Point is one stored row as returned by a range query.
type Point struct {
	Timestamp     time.Time           `json:"timestamp"`
	Values        map[string]*float64 `json:"values"`
	PercentChange *float64            `json:"percentChange"`
}

type Timeseries struct {
	Name    string    `json:"name"`
	Label   string    `json:"label"`
	Table   string    `json:"table"`
	Fields  []string  `json:"fields"`
	Primary string    `json:"primary"`
	Begin   time.Time `json:"begin"`
	End     time.Time `json:"end"`
	Points  []Point   `json:"points"`
}

// Day truncates t to the UTC day it falls in.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
