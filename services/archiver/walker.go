package archiver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sfcourt-backend/lib/browser"
	"sfcourt-backend/lib/casestore"
	"sfcourt-backend/lib/scrapers/sfcourt"

	"github.com/PuerkitoBio/goquery"
)

// Walker drives the portal's new-filings search tab through the date
// cursor: one search per date, then every case in that date's results.
type Walker struct {
	cfg   Config
	store *casestore.Store
	cases *CaseScraper
}

// Run consumes the cursor head by head. The resume case number only
// applies within the first date processed; once that date finishes, every
// later date starts from its first case.
func (w *Walker) Run(ctx context.Context, page browser.Page, cursor *DateCursor, resume string) error {
	if err := page.Click(ctx, sfcourt.SelNewFilingsTab); err != nil {
		return fmt.Errorf("could not open the new filings search tab: %w", err)
	}
	slog.Info("new filings search opened")

	for {
		date, ok := cursor.Head()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.scrapeDate(ctx, page, date, resume); err != nil {
			return err
		}
		resume = ""
		cursor.Pop()
	}
}

func (w *Walker) scrapeDate(ctx context.Context, page browser.Page, date, resume string) error {
	ctx, span := tracer.Start(ctx, "Walker.scrapeDate")
	defer span.End()

	slog.Info("processing filing date", "date", date)

	summary, err := w.store.RefreshDaySummary(date, nil, nil)
	if err != nil {
		return err
	}
	if summary.FullyCompleted && resume == "" {
		slog.Info("date already fully scraped, skipping",
			"date", date,
			"cases", summary.TotalCases,
		)
		return nil
	}

	if err := page.Fill(ctx, sfcourt.SelFilingDate, date); err != nil {
		slog.Warn("could not fill the filing date, skipping date", "date", date, "err", err)
		return nil
	}
	if err := page.Click(ctx, sfcourt.SelSearchButton); err != nil {
		slog.Warn("search submit failed, skipping date", "date", date, "err", err)
		return nil
	}
	if err := pause(ctx, w.cfg.SettleDelay); err != nil {
		return err
	}

	if visible, err := page.Visible(ctx, sfcourt.SelResultsCount); err == nil && visible {
		text, err := page.Text(ctx, sfcourt.SelResultsCount)
		if err == nil && strings.Contains(text, sfcourt.NoResultsMarker) {
			slog.Info("no cases filed", "date", date)
			return nil
		}
	}

	if err := page.SelectOption(ctx, sfcourt.SelLengthSelect, sfcourt.ShowAllValue); err != nil {
		slog.Warn("could not disable pagination, skipping date", "date", date, "err", err)
		return nil
	}
	if err := pause(ctx, w.cfg.SettleDelay); err != nil {
		return err
	}

	html, err := page.Content(ctx)
	if err != nil {
		return &StallError{Cause: "could not read the search results: " + err.Error()}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		slog.Warn("unparseable search results, skipping date", "date", date, "err", err)
		return nil
	}

	index := sfcourt.ExtractCaseIndex(doc)
	if reported, ok := sfcourt.ReportedEntryTotal(doc); ok && reported != len(index) {
		slog.Warn("extracted row count differs from the portal's own count",
			"date", date,
			"extracted", len(index),
			"reported", reported,
		)
	}

	total := len(index)
	if _, err := w.store.RefreshDaySummary(date, &total, index); err != nil {
		return err
	}
	slog.Info("case index saved", "date", date, "cases", total)

	seeking := resume
	for _, ref := range index {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seeking != "" {
			if ref.Number != seeking {
				continue
			}
			slog.Info("resumed at case", "case", seeking, "date", date)
			seeking = ""
		}
		if ref.Link == "" {
			slog.Warn("case row has no detail link, skipping", "case", ref.Number, "date", date)
			continue
		}
		if err := w.cases.Scrape(ctx, date, ref); err != nil {
			return err
		}
		if err := pause(ctx, w.cfg.CaseThrottle); err != nil {
			return err
		}
	}
	if seeking != "" {
		slog.Warn("resume case not present in this date's index", "case", seeking, "date", date)
	}

	_, err = w.store.RefreshDaySummary(date, nil, nil)
	return err
}
