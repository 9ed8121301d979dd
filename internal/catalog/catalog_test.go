package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cat     Catalog
		wantErr bool
	}{
		{
			name: "ok",
			cat:  Catalog{Crypto: []Entry{{Name: "BTC"}}, Covid: []Entry{{Name: "death"}}},
		},
		{
			name:    "invalid identifier",
			cat:     Catalog{Stock: []Entry{{Name: "BRK.B"}}},
			wantErr: true,
		},
		{
			name:    "duplicate across groups",
			cat:     Catalog{Crypto: []Entry{{Name: "ABC"}}, Stock: []Entry{{Name: "ABC"}}},
			wantErr: true,
		},
		{
			name:    "symbol collides with dates table",
			cat:     Catalog{Crypto: []Entry{{Name: "dates"}}},
			wantErr: true,
		},
		{
			name:    "symbol collides with covid table",
			cat:     Catalog{Stock: []Entry{{Name: "covid"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTables_Order(t *testing.T) {
	c := Catalog{
		Crypto: []Entry{{Name: "BTC"}, {Name: "ETH"}},
		Stock:  []Entry{{Name: "AAPL"}},
		Covid:  []Entry{{Name: "death"}},
	}
	assert.Equal(t, []string{"BTC", "ETH", "AAPL", CovidTable}, c.Tables())

	c.Covid = nil
	assert.Equal(t, []string{"BTC", "ETH", "AAPL"}, c.Tables())
}

func TestColumns(t *testing.T) {
	c := Default()

	cols, ok := c.Columns("BTC")
	require.True(t, ok)
	require.Len(t, cols, 4)
	for _, col := range cols {
		assert.Equal(t, Float, col.Kind)
	}

	cols, ok = c.Columns(CovidTable)
	require.True(t, ok)
	assert.Len(t, cols, len(c.Covid))
	assert.Equal(t, Integer, cols[0].Kind)

	_, ok = c.Columns("NOPE")
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	c := Default()

	v, ok := c.Lookup("AAPL")
	require.True(t, ok)
	assert.Equal(t, Stock, v.Category)
	assert.Equal(t, "AAPL", v.Table)
	assert.Equal(t, "close", v.Primary)
	assert.Equal(t, CandlestickColumns(), v.Fields)

	v, ok = c.Lookup("deathIncrease")
	require.True(t, ok)
	assert.Equal(t, Covid, v.Category)
	assert.Equal(t, CovidTable, v.Table)
	assert.Equal(t, []string{"deathIncrease"}, v.Fields)
	assert.Equal(t, "deathIncrease", v.Primary)

	_, ok = c.Lookup(CovidTable)
	assert.False(t, ok, "the covid table itself is not plottable")

	_, ok = c.Lookup("unknown")
	assert.False(t, ok)
}

func TestLabel(t *testing.T) {
	c := Default()
	assert.Equal(t, "Bitcoin (BTC)", c.Label("BTC"))
	assert.Equal(t, "Daily Deaths", c.Label("deathIncrease"))
	assert.Equal(t, "ZZZ", c.Label("ZZZ"))
}
