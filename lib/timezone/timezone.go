package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Los_Angeles")
	if err != nil {
		panic(err)
	}
}

// the court publishes filings in its local calendar, so "today", filing
// dates and record timestamps must all be derived in court-local time no
// matter where the job happens to run
func Now() time.Time {
	return time.Now().In(Location)
}
