package archive

import (
	"time"
	_ "time/tzdata" // Europe/Berlin without a system zoneinfo
)

// Berlin returns the studio's time zone. The fixed +01:00 fallback only
// applies if the embedded zone database cannot be read.
func Berlin() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.FixedZone("CET", 60*60)
	}
	return loc
}

// NextRun returns the next time at hour:00 in loc strictly after now.
func NextRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}
