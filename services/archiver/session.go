// Package archiver is the orchestration engine of the court archive job:
// it owns the date cursor, the browser session lifecycle and the
// crash-consistent progress records, and it is the only component allowed
// to recover from a stalled browser.
package archiver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"sfcourt-backend/lib/browser"
	"sfcourt-backend/lib/casestore"
	"sfcourt-backend/lib/scrapers/sfcourt"
	"sfcourt-backend/lib/waitutil"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/archiver")

// BrowserSession hands out attached browsers and tears them down. The
// production implementation launches a visible Chrome on a debug port; the
// tests substitute scripted fakes.
type BrowserSession interface {
	Open(ctx context.Context) (browser.Browser, error)
	Shutdown(ctx context.Context) error
}

// Driver runs the whole job: session after session until the date cursor
// is empty. A stalled browser is killed and relaunched, and the stalled
// case number becomes the resume point of the next session. Any other
// session failure also restarts the browser, keeping whatever resume point
// was already in play.
type Driver struct {
	cfg     Config
	store   *casestore.Store
	client  *sfcourt.Client
	session BrowserSession
}

func NewDriver(cfg Config, store *casestore.Store, client *sfcourt.Client, session BrowserSession) *Driver {
	return &Driver{
		cfg:     cfg.withDefaults(),
		store:   store,
		client:  client,
		session: session,
	}
}

func (d *Driver) Run(ctx context.Context) error {
	cursor := NewDateCursor(d.cfg.StartDate, d.cfg.EndDate)
	slog.Info("starting archive job",
		"business_dates", cursor.Len(),
		"data_dir", d.store.Root(),
		"resume_case", d.cfg.ResumeCase,
	)

	resume := d.cfg.ResumeCase
	for cursor.Len() > 0 {
		err := d.runSession(ctx, cursor, resume)
		if err == nil {
			break
		}
		d.shutdown()
		if ctx.Err() != nil {
			return err
		}

		var stall *StallError
		if errors.As(err, &stall) {
			slog.Warn("browser stalled, restarting session",
				"case", stall.CaseNumber,
				"cause", stall.Cause,
			)
			if stall.CaseNumber != "" {
				resume = stall.CaseNumber
			}
		} else {
			slog.Warn("session failed, restarting", "err", err)
		}

		if err := pause(ctx, d.cfg.RestartDelay); err != nil {
			return err
		}
	}

	slog.Info("archive job finished", "remaining_dates", cursor.Len())
	d.shutdown()
	return nil
}

func (d *Driver) runSession(ctx context.Context, cursor *DateCursor, resume string) error {
	slog.Info("opening browser session", "remaining_dates", cursor.Len(), "resume_case", resume)

	b, err := d.session.Open(ctx)
	if err != nil {
		return err
	}

	entry, err := b.NewPage(ctx)
	if err != nil {
		return err
	}
	if err := entry.Navigate(ctx, d.cfg.PortalURL); err != nil {
		return err
	}
	slog.Info("portal opened; solve the verification challenge in the browser window if one appears")

	page, err := d.awaitAuthenticatedTab(ctx, b)
	if err != nil {
		return err
	}
	if loc, err := page.Location(ctx); err == nil {
		slog.Info("portal session established", "session_id", sfcourt.SessionIDFromURL(loc))
	}

	if cookies, err := b.Cookies(ctx); err != nil {
		slog.Warn("could not export browser cookies to the download client", "err", err)
	} else {
		d.client.ImportCookies(cookies)
	}

	walker := &Walker{
		cfg:   d.cfg,
		store: d.store,
		cases: &CaseScraper{
			cfg:     d.cfg,
			store:   d.store,
			browser: b,
			fetcher: &sfcourt.Fetcher{
				Client:      d.client,
				Store:       d.store,
				Concurrency: d.cfg.DownloadConcurrency,
			},
		},
	}
	return walker.Run(ctx, page, cursor, resume)
}

// awaitAuthenticatedTab polls the open tabs until one carries a portal
// session id in its URL. There is no deadline: a human solving the
// challenge takes as long as it takes, only context cancellation ends the
// wait.
func (d *Driver) awaitAuthenticatedTab(ctx context.Context, b browser.Browser) (browser.Page, error) {
	var authenticated browser.Page
	err := waitutil.Poll(ctx, waitutil.Options{Interval: d.cfg.ChallengePollInterval}, func(ctx context.Context) (bool, error) {
		pages, err := b.Pages(ctx)
		if err != nil {
			return false, err
		}
		for _, p := range pages {
			loc, err := p.Location(ctx)
			if err != nil {
				continue
			}
			if strings.Contains(loc, sfcourt.SessionMarker) {
				authenticated = p
				return true, nil
			}
		}
		slog.Info("waiting for the verification challenge to be cleared")
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return authenticated, nil
}

func (d *Driver) shutdown() {
	if err := d.session.Shutdown(context.Background()); err != nil {
		slog.Warn("browser shutdown failed", "err", err)
	}
}
