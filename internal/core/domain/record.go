package domain

import "time"

// Record is one tracked inventory item. Expiration is always a concrete
// calendar date at midnight UTC.
type Record struct {
	ID         int64
	Name       string
	Label      string
	Quantity   int
	Expiration time.Time
	OwnerID    string // empty means shared inventory
	Notes      string
	CreatedAt  time.Time
}

// RecordFilter narrows a record query. Zero values mean "no constraint".
type RecordFilter struct {
	OwnerID        string
	ExpiresFrom    time.Time
	ExpiresTo      time.Time
	OrderByExpires bool
}

// RecordUpdate carries the fields an edit overwrites.
type RecordUpdate struct {
	Quantity   int
	Expiration time.Time
}

const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date in t's location and returns it as
// midnight UTC, so dates compare independently of time zones.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
