package series

import (
	"context"
	"time"
)

type Repository interface {
	// NewestTimestamp returns the latest day stored for table; ok is false
	// when the table is empty.
	NewestTimestamp(ctx context.Context, table string) (ts time.Time, ok bool, err error)
	// Insert resolves the record's date id and writes the row atomically.
	Insert(ctx context.Context, table string, rec Record) error
	// Range returns rows with from <= timestamp <= to in ascending order.
	Range(ctx context.Context, table string, fields []string, from, to time.Time) ([]Point, error)
}
