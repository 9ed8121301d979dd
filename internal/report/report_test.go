package report

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/dailystats/internal/series"
)

func f(v float64) *float64 { return &v }

func sample() *series.Timeseries {
	return &series.Timeseries{
		Name:    "death",
		Table:   "covid",
		Fields:  []string{"death"},
		Primary: "death",
		Points: []series.Point{
			{Timestamp: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), Values: map[string]*float64{"death": f(100)}},
			{Timestamp: time.Date(2021, 3, 2, 0, 0, 0, 0, time.UTC), Values: map[string]*float64{"death": nil}},
			{Timestamp: time.Date(2021, 3, 3, 0, 0, 0, 0, time.UTC), Values: map[string]*float64{"death": f(110)}, PercentChange: f(10)},
		},
	}
}

func TestColumnar(t *testing.T) {
	snap := Columnar(sample())

	assert.Len(t, snap, 3)
	assert.Equal(t, []any{int64(1614556800), int64(1614643200), int64(1614729600)}, snap["timestamp"])
	assert.Equal(t, []any{100.0, nil, 110.0}, snap["death"])
	assert.Equal(t, []any{nil, nil, 10.0}, snap["percent_change"])
}

func TestWriteRead(t *testing.T) {
	for _, compress := range []bool{false, true} {
		w := NewWriter(filepath.Join(t.TempDir(), "calculations"), WithCompression(compress))

		require.NoError(t, w.Write(sample()))

		_, err := os.Stat(w.Path("death"))
		require.NoError(t, err)

		snap, err := w.Read("death")
		require.NoError(t, err)
		assert.Equal(t, []any{100.0, nil, 110.0}, snap["death"])
		assert.Equal(t, []any{nil, nil, 10.0}, snap["percent_change"])
		assert.Len(t, snap["timestamp"], 3)
	}
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "BTC.json"), NewWriter("out").Path("BTC"))
	assert.Equal(t, filepath.Join("out", "BTC.json.sz"), NewWriter("out", WithCompression(true)).Path("BTC"))
}

func TestRead_Missing(t *testing.T) {
	_, err := NewWriter(t.TempDir()).Read("nope")
	assert.Error(t, err)
}

func TestWrite_ConcurrentSameName(t *testing.T) {
	w := NewWriter(t.TempDir())

	var wg sync.WaitGroup
	errs := make(chan error, 8*20)
	for round := 0; round < 20; round++ {
		for j := 0; j < 8; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- w.Write(sample())
			}()
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	snap, err := w.Read("death")
	require.NoError(t, err)
	assert.Len(t, snap["timestamp"], 3)

	entries, err := os.ReadDir(w.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}
