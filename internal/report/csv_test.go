package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	want := "date,death,percent_change\n" +
		"2021-03-01,100,\n" +
		"2021-03-02,,\n" +
		"2021-03-03,110,10\n"
	assert.Equal(t, want, buf.String())
}
