package domain

import "time"

// Stats summarises an inventory relative to a reference date. Soon30
// includes everything counted in Soon7.
type Stats struct {
	Total   int
	Expired int
	Soon7   int
	Soon30  int
}

// ComputeStats counts records against today. Dates are compared at day
// granularity.
func ComputeStats(records []Record, today time.Time) Stats {
	today = DateOf(today)
	in7 := today.AddDate(0, 0, 7)
	in30 := today.AddDate(0, 0, 30)

	var s Stats
	for _, r := range records {
		exp := DateOf(r.Expiration)
		s.Total++
		switch {
		case exp.Before(today):
			s.Expired++
		case !exp.After(in30):
			s.Soon30++
			if !exp.After(in7) {
				s.Soon7++
			}
		}
	}
	return s
}
