package archiver

import (
	"time"

	"sfcourt-backend/lib/scrapers/sfcourt"
)

// Config carries every knob of a scrape job. It is built once by the CLI
// and passed down explicitly; nothing in the engine reads process-wide
// state.
type Config struct {
	// inclusive filing-date range to crawl
	StartDate time.Time
	EndDate   time.Time

	// case number to fast-forward to within the first date processed,
	// set on the command line or by a session restart
	ResumeCase string

	PortalURL string

	// concurrent document fetches per case
	DownloadConcurrency int64

	// bounded wait for a case page to render its action table
	CaseLoadAttempts int
	CaseLoadInterval time.Duration

	// unbounded wait for a human to clear the anti-bot challenge
	ChallengePollInterval time.Duration

	// pause between cases, keeps the request rate polite
	CaseThrottle time.Duration

	// pause after submitting a search or toggling pagination, gives the
	// results table time to reload
	SettleDelay time.Duration

	// pause between killing a stuck browser and launching the next one
	RestartDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.PortalURL == "" {
		c.PortalURL = sfcourt.EntryURL
	}
	if c.DownloadConcurrency <= 0 {
		c.DownloadConcurrency = sfcourt.DefaultFetchConcurrency
	}
	if c.CaseLoadAttempts <= 0 {
		c.CaseLoadAttempts = 10
	}
	if c.CaseLoadInterval <= 0 {
		c.CaseLoadInterval = time.Second
	}
	if c.ChallengePollInterval <= 0 {
		c.ChallengePollInterval = time.Second * 3
	}
	if c.CaseThrottle <= 0 {
		c.CaseThrottle = time.Second * 2
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = time.Second
	}
	if c.RestartDelay <= 0 {
		c.RestartDelay = time.Second * 2
	}
	return c
}
