package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLookAheadDays is the scanner window length.
const DefaultLookAheadDays = 7

// DigestEntry is one line of a digest.
type DigestEntry struct {
	Name       string
	Label      string
	Expiration time.Time
}

// Digest lists records expiring inside the look-ahead window, ordered by
// expiration date.
type Digest struct {
	From    time.Time
	To      time.Time
	Entries []DigestEntry
}

// NewDigest builds a digest from records already ordered by expiration.
func NewDigest(from, to time.Time, records []Record) Digest {
	d := Digest{From: from, To: to, Entries: make([]DigestEntry, 0, len(records))}
	for _, r := range records {
		d.Entries = append(d.Entries, DigestEntry{
			Name:       r.Name,
			Label:      r.Label,
			Expiration: r.Expiration,
		})
	}
	return d
}

func (d Digest) Empty() bool {
	return len(d.Entries) == 0
}

// Render produces the single message sent to every subscriber.
func (d Digest) Render() string {
	var b strings.Builder
	days := int(d.To.Sub(d.From).Hours() / 24)
	fmt.Fprintf(&b, "Expiring within %d days:", days)
	for _, e := range d.Entries {
		fmt.Fprintf(&b, "\n%s (%s) — expires %s", e.Name, e.Label, FormatDate(e.Expiration))
	}
	return b.String()
}
