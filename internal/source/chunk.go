package source

import "time"

// Page is one provider request for Limit days back from To. Providers that
// count the end day on top of the limit return Limit+1 rows per page.
type Page struct {
	To    time.Time
	Limit int
}

// SplitLookback splits a lookback of limit days ending at to into pages of
// at most pageSize days, newest page first. Pages do not overlap.
func SplitLookback(to time.Time, limit, pageSize int) []Page {
	if limit <= 0 || pageSize <= 0 {
		return nil
	}

	var pages []Page
	for remaining := limit; remaining > 0; {
		n := min(remaining, pageSize)
		pages = append(pages, Page{To: to, Limit: n})
		remaining -= n
		to = to.AddDate(0, 0, -(n + 1))
	}
	return pages
}
