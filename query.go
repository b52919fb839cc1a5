package paperdash

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ListQuery configures list operations. A query is immutable per fetch;
// callers derive new values with the With* helpers.
type ListQuery struct {
	Keyword  string     // Free-text search, empty means no filter
	DateFrom *time.Time // Inclusive lower bound on the item date
	DateTo   *time.Time // Inclusive upper bound on the item date
	Status   Status     // Article status filter, empty means any
	Limit    int        // Page size, must be positive
	Offset   int        // Number of items to skip
}

// WithOffset returns a copy of q starting at offset.
func (q ListQuery) WithOffset(offset int) ListQuery {
	q.Offset = offset
	return q
}

// Filtered reports whether any filter beyond paging is set.
func (q ListQuery) Filtered() bool {
	return strings.TrimSpace(q.Keyword) != "" || q.DateFrom != nil || q.DateTo != nil || q.Status != ""
}

// Validate checks q before it is sent.
func (q ListQuery) Validate() error {
	if q.Limit <= 0 {
		return &ValidationError{Field: "limit", Message: "must be positive"}
	}
	if q.Offset < 0 {
		return &ValidationError{Field: "offset", Message: "must not be negative"}
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateFrom.After(*q.DateTo) {
		return &ValidationError{Field: "date range", Message: "start date is after end date"}
	}
	if q.Status != "" && !q.Status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown status " + strconv.Quote(string(q.Status))}
	}
	return nil
}

// Values encodes q as URL query parameters. The date range is widened to
// whole days: the start at 00:00:00 and the end at 23:59:59.999.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		v.Set("keyword", kw)
	}
	if q.DateFrom != nil {
		v.Set("start_date", startOfDay(*q.DateFrom).Format(time.RFC3339))
	}
	if q.DateTo != nil {
		v.Set("end_date", endOfDay(*q.DateTo).Format(time.RFC3339Nano))
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	return v
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).UTC()
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location()).UTC()
}
