// Package report writes computed time series to disk as columnar JSON
// snapshots, one file per plottable name.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	"github.com/ahmethakanbesel/dailystats/internal/series"
)

const (
	timestampColumn     = "timestamp"
	percentChangeColumn = "percent_change"
	compressedExt       = ".json.sz"
)

// Snapshot is the on-disk layout: one array per column, all the same length.
type Snapshot map[string][]any

type Writer struct {
	dir      string
	compress bool
}

type Option func(*Writer)

// WithCompression stores snapshots snappy-encoded under <name>.json.sz.
func WithCompression(on bool) Option {
	return func(w *Writer) { w.compress = on }
}

func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Columnar converts a time series into its snapshot columns.
func Columnar(ts *series.Timeseries) Snapshot {
	snap := Snapshot{
		timestampColumn:     make([]any, len(ts.Points)),
		percentChangeColumn: make([]any, len(ts.Points)),
	}
	for _, f := range ts.Fields {
		snap[f] = make([]any, len(ts.Points))
	}

	for i, p := range ts.Points {
		snap[timestampColumn][i] = p.Timestamp.Unix()
		for _, f := range ts.Fields {
			if v := p.Values[f]; v != nil {
				snap[f][i] = *v
			}
		}
		if p.PercentChange != nil {
			snap[percentChangeColumn][i] = *p.PercentChange
		}
	}
	return snap
}

// Write replaces the snapshot of ts.Name.
func (w *Writer) Write(ts *series.Timeseries) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(Columnar(ts), "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", ts.Name, err)
	}

	path := w.Path(ts.Name)
	if w.compress {
		data = snappy.Encode(nil, data)
	}

	if err := writeAtomic(w.dir, path, data); err != nil {
		return fmt.Errorf("write snapshot %s: %w", ts.Name, err)
	}

	slog.Debug("snapshot written", "series", ts.Name, "path", path, "rows", len(ts.Points))
	return nil
}

// writeAtomic writes data to a unique temp file in dir and renames it over
// path, so concurrent writers of one snapshot never share a temp file.
func writeAtomic(dir, path string, data []byte) error {
	f, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns where the snapshot of name is stored.
func (w *Writer) Path(name string) string {
	if w.compress {
		return filepath.Join(w.dir, name+compressedExt)
	}
	return filepath.Join(w.dir, name+".json")
}

// Read loads a snapshot written by Write.
func (w *Writer) Read(name string) (Snapshot, error) {
	data, err := os.ReadFile(w.Path(name))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	if w.compress {
		if data, err = snappy.Decode(nil, data); err != nil {
			return nil, fmt.Errorf("decompress snapshot %s: %w", name, err)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return snap, nil
}
