package archiver

import "time"

const DateFormat = "2006-01-02"

// thanksgiving is the fourth Thursday of November.
func thanksgiving(year int) time.Time {
	novFirst := time.Date(year, time.November, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Thursday) - int(novFirst.Weekday()) + 7) % 7
	return novFirst.AddDate(0, 0, offset+21)
}

// IsCourtHoliday reports whether the court is closed on the given day:
// fixed federal holidays plus Thanksgiving.
func IsCourtHoliday(d time.Time) bool {
	switch {
	case d.Month() == time.January && d.Day() == 1:
		return true
	case d.Month() == time.July && d.Day() == 4:
		return true
	case d.Month() == time.December && d.Day() == 25:
		return true
	case d.Month() == time.November && d.Day() == thanksgiving(d.Year()).Day():
		return true
	}
	return false
}

func IsBusinessDay(d time.Time) bool {
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	return !IsCourtHoliday(d)
}

// BusinessDates lists, in ascending order, every business date in the
// inclusive range. Weekends and court holidays never enter the cursor at
// all.
func BusinessDates(start, end time.Time) []string {
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			dates = append(dates, d.Format(DateFormat))
		}
	}
	return dates
}

// DateCursor is the remaining work queue of dates. The head is popped only
// after the date has been fully attempted, so a session restart re-enters
// at exactly the date that was in flight.
type DateCursor struct {
	dates []string
}

func NewDateCursor(start, end time.Time) *DateCursor {
	return &DateCursor{dates: BusinessDates(start, end)}
}

func (c *DateCursor) Head() (string, bool) {
	if len(c.dates) == 0 {
		return "", false
	}
	return c.dates[0], true
}

func (c *DateCursor) Pop() {
	if len(c.dates) > 0 {
		c.dates = c.dates[1:]
	}
}

func (c *DateCursor) Len() int {
	return len(c.dates)
}
