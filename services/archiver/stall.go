package archiver

import "fmt"

// StallError reports that the browser stopped making progress while a case
// was being scraped. It is returned, never panicked, through every layer
// between the case scraper and the session driver, which is the only
// component that recovers from it: it restarts the browser and resumes at
// the carried case number.
type StallError struct {
	CaseNumber string
	Cause      string
}

func (e *StallError) Error() string {
	return fmt.Sprintf("browser stalled on case %s: %s", e.CaseNumber, e.Cause)
}
