// Package catalog describes the tracked series: which crypto and stock
// symbols get a candlestick table, and which epidemiological counters are
// kept in the shared covid table. It is plain configuration, passed
// explicitly to the schema initializer, the adapters and the query facade.
package catalog

import (
	"fmt"
	"regexp"
	"slices"
)

type Category string

const (
	Crypto Category = "crypto"
	Stock  Category = "stock"
	Covid  Category = "covid"
)

// CovidTable holds every epidemiological counter as one column.
const CovidTable = "covid"

// Reserved table names that no symbol may use.
const (
	DatesTable = "dates"
	RunsTable  = "ingest_runs"
)

// PrimaryMarketField is the candlestick field percent change is computed on.
const PrimaryMarketField = "close"

var identifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// CandlestickColumns returns the value columns of crypto and stock tables.
func CandlestickColumns() []string {
	return []string{"open", "close", "high", "low"}
}

type Kind string

const (
	Float   Kind = "float"
	Integer Kind = "integer"
)

type Column struct {
	Name string
	Kind Kind
}

type Entry struct {
	Name  string `mapstructure:"name" json:"name"`
	Label string `mapstructure:"label" json:"label"`
}

type Catalog struct {
	Crypto []Entry `mapstructure:"crypto" json:"crypto"`
	Stock  []Entry `mapstructure:"stock" json:"stock"`
	Covid  []Entry `mapstructure:"covid" json:"covid"`
}

// View is what a query needs to know about a plottable name.
type View struct {
	Name     string
	Category Category
	Table    string
	Fields   []string
	Primary  string
}

// Validate rejects names that cannot be used as SQL identifiers, duplicates,
// and symbols that collide with reserved tables.
func (c Catalog) Validate() error {
	seen := make(map[string]bool)
	for _, group := range []struct {
		cat     Category
		entries []Entry
	}{{Crypto, c.Crypto}, {Stock, c.Stock}, {Covid, c.Covid}} {
		for _, e := range group.entries {
			if !identifier.MatchString(e.Name) {
				return fmt.Errorf("catalog: %s name %q is not a valid identifier", group.cat, e.Name)
			}
			if seen[e.Name] {
				return fmt.Errorf("catalog: duplicate name %q", e.Name)
			}
			seen[e.Name] = true
			if group.cat != Covid && isReserved(e.Name) {
				return fmt.Errorf("catalog: symbol %q collides with a reserved table", e.Name)
			}
		}
	}
	return nil
}

func isReserved(name string) bool {
	switch name {
	case CovidTable, DatesTable, RunsTable:
		return true
	}
	return false
}

// Tables returns the series table names in ingestion order: crypto symbols,
// stock symbols, then the covid table when any counter is tracked.
func (c Catalog) Tables() []string {
	tables := make([]string, 0, len(c.Crypto)+len(c.Stock)+1)
	for _, e := range c.Crypto {
		tables = append(tables, e.Name)
	}
	for _, e := range c.Stock {
		tables = append(tables, e.Name)
	}
	if len(c.Covid) > 0 {
		tables = append(tables, CovidTable)
	}
	return tables
}

// TableCategory reports which group a series table belongs to.
func (c Catalog) TableCategory(table string) (Category, bool) {
	if table == CovidTable && len(c.Covid) > 0 {
		return Covid, true
	}
	if containsName(c.Crypto, table) {
		return Crypto, true
	}
	if containsName(c.Stock, table) {
		return Stock, true
	}
	return "", false
}

// Columns returns the value columns of a series table.
func (c Catalog) Columns(table string) ([]Column, bool) {
	cat, ok := c.TableCategory(table)
	if !ok {
		return nil, false
	}
	if cat == Covid {
		cols := make([]Column, len(c.Covid))
		for i, e := range c.Covid {
			cols[i] = Column{Name: e.Name, Kind: Integer}
		}
		return cols, true
	}
	names := CandlestickColumns()
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Kind: Float}
	}
	return cols, true
}

// CovidFields returns the tracked epidemiological counter names.
func (c Catalog) CovidFields() []string {
	names := make([]string, len(c.Covid))
	for i, e := range c.Covid {
		names[i] = e.Name
	}
	return names
}

// IsCovidStat reports whether name is a tracked epidemiological counter.
func (c Catalog) IsCovidStat(name string) bool {
	return containsName(c.Covid, name)
}

// Lookup resolves a plottable name: a crypto or stock symbol reads its own
// table with all candlestick fields, a covid counter reads its single column
// from the covid table.
func (c Catalog) Lookup(name string) (View, bool) {
	if c.IsCovidStat(name) {
		return View{
			Name:     name,
			Category: Covid,
			Table:    CovidTable,
			Fields:   []string{name},
			Primary:  name,
		}, true
	}
	cat, ok := c.TableCategory(name)
	if !ok || cat == Covid {
		return View{}, false
	}
	return View{
		Name:     name,
		Category: cat,
		Table:    name,
		Fields:   CandlestickColumns(),
		Primary:  PrimaryMarketField,
	}, true
}

// Label returns the human-readable label of a symbol or counter.
func (c Catalog) Label(name string) string {
	for _, group := range [][]Entry{c.Crypto, c.Stock, c.Covid} {
		for _, e := range group {
			if e.Name == name {
				return e.Label
			}
		}
	}
	return name
}

func containsName(entries []Entry, name string) bool {
	return slices.ContainsFunc(entries, func(e Entry) bool { return e.Name == name })
}

// Default returns the catalog the dashboard ships with.
func Default() Catalog {
	return Catalog{
		Crypto: []Entry{
			{Name: "BTC", Label: "Bitcoin (BTC)"},
			{Name: "XMR", Label: "Monero (XMR)"},
			{Name: "LTC", Label: "Litecoin (LTC)"},
			{Name: "ETH", Label: "Ethereum (ETH)"},
			{Name: "BCH", Label: "Bitcoin Cash (BCH)"},
			{Name: "DASH", Label: "Dash (DASH)"},
			{Name: "XRP", Label: "Ripple (XRP)"},
		},
		Stock: []Entry{
			{Name: "DJI", Label: "Dow Jones (DJI)"},
			{Name: "VIX", Label: "Volatility (VIX)"},
			{Name: "AAPL", Label: "Apple (AAPL)"},
			{Name: "NFLX", Label: "Netflix (NFLX)"},
			{Name: "DPZ", Label: "Dominos Pizza (DPZ)"},
		},
		Covid: []Entry{
			{Name: "deathIncrease", Label: "Daily Deaths"},
			{Name: "hospitalizedIncrease", Label: "Daily Hospitalizations"},
			{Name: "positiveIncrease", Label: "Daily Positive Tests"},
			{Name: "negativeIncrease", Label: "Daily Negative Tests"},
			{Name: "totalTestResultsIncrease", Label: "Daily Tests"},
			{Name: "positive", Label: "Total Positive Tests"},
			{Name: "negative", Label: "Total Negative Tests"},
			{Name: "pending", Label: "Total Pending Tests"},
			{Name: "totalTestResults", Label: "Total Tests"},
			{Name: "death", Label: "Total Deaths"},
			{Name: "recovered", Label: "Total Recovered"},
			{Name: "hospitalizedCumulative", Label: "# of Patients Hospitalized Overall"},
			{Name: "hospitalizedCurrently", Label: "# of Patients Hospitalized Currently"},
			{Name: "inIcuCumulative", Label: "# of Patients In Icu Overall"},
			{Name: "inIcuCurrently", Label: "# of Patients In Icu Currently"},
			{Name: "onVentilatorCumulative", Label: "# of Ventilators Used Overall"},
			{Name: "onVentilatorCurrently", Label: "# of Ventilators In Use Currently"},
			{Name: "states", Label: "# of States With Cases"},
		},
	}
}
