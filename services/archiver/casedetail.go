package archiver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"sfcourt-backend/lib/browser"
	"sfcourt-backend/lib/casestore"
	"sfcourt-backend/lib/scrapers/sfcourt"
	"sfcourt-backend/lib/timezone"
	"sfcourt-backend/lib/waitutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// CaseScraper opens one case's detail page in a fresh tab, extracts its
// register of actions and pulls every linked document through the Fetcher.
//
// Persistence is front-loaded: the pending record with the full action list
// is written before the first document fetch starts, so a crash mid-case
// loses download progress but never the register itself.
type CaseScraper struct {
	cfg     Config
	store   *casestore.Store
	browser browser.Browser
	fetcher *sfcourt.Fetcher
}

func (s *CaseScraper) Scrape(ctx context.Context, date string, ref casestore.CaseRef) error {
	link := sfcourt.AbsoluteLink(ref.Link)
	caseNumber := sfcourt.CaseNumberFromLink(link, ref.Number)

	if rec, ok := s.store.ReadCaseRecord(date, caseNumber); ok && casestore.Completed(rec.Metadata) {
		slog.Info("case already resolved, skipping", "case", caseNumber, "status", rec.Metadata.Status)
		return nil
	}

	ctx, span := tracer.Start(ctx, "CaseScraper.Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("case", caseNumber), attribute.String("date", date))

	slog.Info("scraping case", "case", caseNumber)

	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return &StallError{CaseNumber: caseNumber, Cause: "could not open a tab: " + err.Error()}
	}
	defer page.Close(context.WithoutCancel(ctx))

	if err := page.Navigate(ctx, link); err != nil {
		return &StallError{CaseNumber: caseNumber, Cause: "navigation failed: " + err.Error()}
	}

	restricted, err := s.awaitCaseView(ctx, page, caseNumber)
	if errors.Is(err, waitutil.ErrTimeout) {
		return &StallError{CaseNumber: caseNumber, Cause: "case view never rendered"}
	}
	if err != nil {
		return err
	}
	if restricted {
		slog.Info("case is restricted from viewing", "case", caseNumber)
		return s.store.WriteRestricted(date, caseNumber, sfcourt.RestrictedReason)
	}

	if err := page.SelectOption(ctx, sfcourt.SelLengthSelect, sfcourt.ShowAllValue); err != nil {
		slog.Warn("could not disable pagination on case view", "case", caseNumber, "err", err)
	} else if err := pause(ctx, s.cfg.SettleDelay); err != nil {
		return err
	}

	html, err := page.Content(ctx)
	if err != nil {
		return &StallError{CaseNumber: caseNumber, Cause: "could not read the case view: " + err.Error()}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		slog.Warn("unparseable case view, skipping", "case", caseNumber, "err", err)
		return nil
	}

	extract := sfcourt.ExtractRegister(doc)
	slog.Info("register extracted",
		"case", caseNumber,
		"entries", len(extract.Actions),
		"documents", extract.TotalLinks,
	)

	startedAt := timezone.Now().Format(time.RFC3339)
	pending := casestore.CaseRecord{
		Metadata: casestore.CaseMetadata{
			Status:       casestore.StatusPending,
			TotalEntries: len(extract.Actions),
			TotalLinks:   extract.TotalLinks,
			StartedAt:    startedAt,
		},
		Actions: extract.Actions,
	}
	if err := s.store.WriteCaseRecord(date, caseNumber, pending); err != nil {
		slog.Warn("could not persist case record, skipping downloads", "case", caseNumber, "err", err)
		return nil
	}

	if len(extract.Downloads) > 0 {
		summary := s.fetcher.Run(ctx, date, caseNumber, extract.Downloads)
		slog.Info("document batch finished",
			"case", caseNumber,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
		)
	}

	return s.finalize(date, caseNumber, pending)
}

// awaitCaseView waits for the detail page to settle into one of its three
// terminal shapes: the action table, the restricted notice, or (after the
// deadline) a stall. Challenge interstitials just keep the wait going.
func (s *CaseScraper) awaitCaseView(ctx context.Context, page browser.Page, caseNumber string) (restricted bool, err error) {
	opts := waitutil.Options{
		Interval: s.cfg.CaseLoadInterval,
		Timeout:  s.cfg.CaseLoadInterval * time.Duration(s.cfg.CaseLoadAttempts),
	}
	err = waitutil.Poll(ctx, opts, func(ctx context.Context) (bool, error) {
		title, _ := page.Title(ctx)
		content, err := page.Content(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, err
			}
			return false, nil
		}
		if sfcourt.LooksLikeChallenge(title, content) {
			slog.Warn("anti-bot challenge on case view, waiting it out", "case", caseNumber)
			return false, nil
		}
		if sfcourt.IsRestricted(content) {
			restricted = true
			return true, nil
		}
		visible, err := page.Visible(ctx, sfcourt.SelLengthSelect)
		if err != nil {
			if ctx.Err() != nil {
				return false, err
			}
			return false, nil
		}
		return visible, nil
	})
	return restricted, err
}

// finalize derives the case's terminal status from what is actually on
// disk, not from fetch return values.
func (s *CaseScraper) finalize(date, caseNumber string, pending casestore.CaseRecord) error {
	rec, ok := s.store.ReadCaseRecord(date, caseNumber)
	if !ok {
		rec = pending
	}

	scraped := s.store.CountArtifacts(date, caseNumber, rec.Actions)
	rec.Metadata.ScrapedLinks = scraped
	if scraped == rec.Metadata.TotalLinks && rec.Metadata.TotalLinks > 0 {
		rec.Metadata.Status = casestore.StatusComplete
	} else {
		rec.Metadata.Status = casestore.StatusPartial
	}
	rec.Metadata.CompletedAt = timezone.Now().Format(time.RFC3339)
	rec.Metadata.LastUpdated = rec.Metadata.CompletedAt

	if err := s.store.WriteCaseRecord(date, caseNumber, rec); err != nil {
		return err
	}
	slog.Info("case finished",
		"case", caseNumber,
		"status", rec.Metadata.Status,
		"scraped_links", scraped,
		"total_links", rec.Metadata.TotalLinks,
	)
	return nil
}

// pause sleeps unless the context dies first.
func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
