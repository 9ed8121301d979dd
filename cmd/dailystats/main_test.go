package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/dailystats/internal/series"
)

func writeConfig(t *testing.T) (path, reportDir string) {
	t.Helper()
	dir := t.TempDir()
	reportDir = filepath.Join(dir, "calculations")
	path = filepath.Join(dir, "dailystats.yaml")
	cfg := "db:\n  dsn: " + filepath.Join(dir, "db.sqlite") + "\n" +
		"report:\n  dir: " + reportDir + "\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, reportDir
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, runCLI(nil, &out))
	assert.Error(t, runCLI([]string{"bogus"}, &out))
}

func TestRun_ReportEmptySeries(t *testing.T) {
	path, reportDir := writeConfig(t)

	var out bytes.Buffer
	err := runCLI([]string{"--config", path, "report", "BTC", "--begin", "2024-01-01", "--end", "2024-01-31"}, &out)
	require.NoError(t, err)

	var ts series.Timeseries
	require.NoError(t, json.Unmarshal(out.Bytes(), &ts))
	assert.Equal(t, "BTC", ts.Name)
	assert.Empty(t, ts.Points)

	_, err = os.Stat(filepath.Join(reportDir, "BTC.json"))
	assert.NoError(t, err)
}

func TestRun_ReportErrors(t *testing.T) {
	path, _ := writeConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no name", []string{"report"}},
		{"unknown name", []string{"report", "nope"}},
		{"bad begin", []string{"report", "BTC", "--begin", "01/02/2024"}},
		{"end before begin", []string{"report", "BTC", "--begin", "2024-02-01", "--end", "2024-01-01"}},
		{"bad format", []string{"report", "BTC", "--format", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, runCLI(append([]string{"--config", path}, tt.args...), &out))
		})
	}
}
