package covidtracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/dailystats/internal/source"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *Adapter) {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)

	a := New(
		WithClient(ts.Client()),
		WithEndpoint(ts.URL),
		WithFields([]string{"death", "positive", "recovered"}),
	)
	return ts, a
}

func TestFetch(t *testing.T) {
	_, a := newTestServer(t, http.StatusOK, `[
		{"date": 20210307, "dateChecked": "2021-03-07T24:00:00Z", "death": 515151, "positive": 28756489, "recovered": null, "states": 56},
		{"date": 20210306, "dateChecked": "2021-03-06T24:00:00Z", "death": 514309, "positive": 28714654}
	]`)

	recs, err := a.Fetch(context.Background(), source.Request{})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC), recs[0].Timestamp)
	assert.Equal(t, 515151.0, recs[0].Fields["death"])
	assert.Equal(t, 28756489.0, recs[0].Fields["positive"])

	_, hasRecovered := recs[0].Fields["recovered"]
	assert.False(t, hasRecovered, "null counters are left out")
	_, hasStates := recs[0].Fields["states"]
	assert.False(t, hasStates, "counters outside the field filter are dropped")
}

func TestFetch_SkipsBadDates(t *testing.T) {
	_, a := newTestServer(t, http.StatusOK, `[
		{"dateChecked": "2021-03-07T24:00:00Z", "death": 1},
		{"dateChecked": "yesterday", "death": 2},
		{"death": 3}
	]`)

	recs, err := a.Fetch(context.Background(), source.Request{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 1.0, recs[0].Fields["death"])
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind source.Kind
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantKind: source.KindStatus},
		{name: "malformed json", status: http.StatusOK, body: `{"message":"not a list"}`, wantKind: source.KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, a := newTestServer(t, tt.status, tt.body)

			_, err := a.Fetch(context.Background(), source.Request{})
			fe, ok := source.AsFetchError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, fe.Kind)
			assert.Equal(t, "covidtracking", fe.Adapter)
		})
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "covidtracking", New().Name())
}
