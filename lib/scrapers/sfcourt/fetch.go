package sfcourt

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sfcourt-backend/lib/casestore"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
)

const (
	// more than 2 concurrent fetches has been observed to trip the
	// anti-bot challenge
	DefaultFetchConcurrency = 2

	// anything smaller than this is an interstitial page, not a court
	// document
	MinDocumentSize = 5000

	pdfSignature    = "%PDF"
	signatureWindow = 100
	fetchAttempts   = 3
)

// ValidDocument reports whether a response body is an actual document
// rather than a challenge page saved as one.
func ValidDocument(body []byte) bool {
	if len(body) < MinDocumentSize {
		return false
	}
	window := body
	if len(window) > signatureWindow {
		window = window[:signatureWindow]
	}
	return bytes.Contains(window, []byte(pdfSignature))
}

// Fetcher downloads a case's documents with bounded concurrency, recording
// each document's outcome in the case record as it resolves. It never returns
// an error: a document that cannot be fetched degrades the case to partial,
// it does not stop the crawl.
type Fetcher struct {
	Client *Client
	Store  *casestore.Store

	// concurrent fetch limit, DefaultFetchConcurrency when zero
	Concurrency int64
	// base unit of the per-attempt backoff, overridable in tests
	BackoffUnit time.Duration
	// extra pause after receiving a challenge-shaped response
	ChallengePause time.Duration
}

type FetchSummary struct {
	Succeeded int
	Failed    int
}

type fetchOutcome struct {
	actionIndex int
	ok          bool
}

// Run fetches all tasks for one case and blocks until the whole batch has
// drained. Per-document outcomes are applied to the case record by a single
// collector goroutine, in arrival order.
func (f *Fetcher) Run(ctx context.Context, date, caseNumber string, tasks []DownloadTask) FetchSummary {
	var summary FetchSummary
	if len(tasks) == 0 {
		return summary
	}

	limit := f.Concurrency
	if limit <= 0 {
		limit = DefaultFetchConcurrency
	}
	sem := semaphore.NewWeighted(limit)
	outcomes := make(chan fetchOutcome, len(tasks))

	var collector sync.WaitGroup
	collector.Add(1)
	go func() {
		defer collector.Done()
		for outcome := range outcomes {
			err := f.Store.UpdateActionDownload(date, caseNumber, outcome.actionIndex, outcome.ok)
			if err != nil {
				slog.Warn("could not record download outcome",
					"case", caseNumber, "action", outcome.actionIndex, "err", err)
			}
			if outcome.ok {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
		}
	}()

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task DownloadTask) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes <- fetchOutcome{task.ActionIndex, false}
				return
			}
			defer sem.Release(1)

			dest := f.Store.ArtifactPath(date, caseNumber, task.Filename)
			outcomes <- fetchOutcome{task.ActionIndex, f.fetchOne(ctx, task, dest)}
		}(task)
	}

	wg.Wait()
	close(outcomes)
	collector.Wait()
	return summary
}

func (f *Fetcher) fetchOne(ctx context.Context, task DownloadTask, dest string) bool {
	ctx, span := tracer.Start(ctx, "fetcher:fetchOne")
	defer span.End()
	span.SetAttributes(attribute.String("filename", task.Filename))

	if info, err := os.Stat(dest); err == nil {
		if info.Size() > MinDocumentSize {
			span.SetStatus(codes.Ok, "already on disk")
			return true
		}
		// a previously saved challenge page masquerading as a document
		os.Remove(dest)
	}

	backoff := f.BackoffUnit
	if backoff == 0 {
		backoff = time.Second
	}
	challengePause := f.ChallengePause
	if challengePause == 0 {
		challengePause = time.Second * 5
	}

	slog.Info("downloading document", "filename", task.Filename)
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		res, err := f.Client.Get(ctx, task.URL)
		if err != nil {
			slog.Warn("document fetch failed",
				"filename", task.Filename, "attempt", attempt, "err", err)
			if !sleepCtx(ctx, backoff*time.Duration(attempt)) {
				return false
			}
			continue
		}

		if res.StatusCode() != 200 {
			slog.Warn("document fetch got bad status",
				"filename", task.Filename, "attempt", attempt, "status", res.StatusCode())
			if !sleepCtx(ctx, backoff*time.Duration(attempt)) {
				return false
			}
			continue
		}

		body := res.Body()
		if !ValidDocument(body) {
			// soft failure: almost certainly the anti-bot interstitial,
			// back off longer than for a plain error
			slog.Warn("got challenge page instead of document",
				"filename", task.Filename, "attempt", attempt, "bytes", len(body))
			span.AddEvent("challenge response")
			if !sleepCtx(ctx, challengePause) {
				return false
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			span.RecordError(err)
			return false
		}
		if err := os.WriteFile(dest, body, 0644); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to write artifact")
			return false
		}
		slog.Info("downloaded document", "filename", task.Filename, "bytes", len(body))
		return true
	}

	slog.Error("gave up on document", "filename", task.Filename, "attempts", fetchAttempts)
	span.SetStatus(codes.Error, "attempts exhausted")
	return false
}

// sleepCtx pauses for d, reporting false when the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
