package archiver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"sfcourt-backend/lib/casestore"
	"sfcourt-backend/lib/scrapers/sfcourt"

	"github.com/stretchr/testify/require"
)

func pdfBody() []byte {
	body := bytes.Repeat([]byte("x"), sfcourt.MinDocumentSize+100)
	copy(body, []byte("%PDF-1.4\n"))
	return body
}

func caseRef(num string) casestore.CaseRef {
	return casestore.CaseRef{
		Number: num,
		Title:  "SMITH VS JONES",
		Link:   "CaseInfo.dll?CaseNum=" + num + "&SessionID=X",
	}
}

func TestCaseScraperDownloadsRegister(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBody())
	}))
	defer server.Close()

	store := casestore.New(t.TempDir())
	fb := &fakeBrowser{newPage: caseViewPage(registerFixture(server.URL))}
	s := newCaseScraper(t, testConfig(), store, fb)

	require.NoError(t, s.Scrape(context.Background(), "2015-01-05", caseRef("CGC15000001")))

	rec, ok := store.ReadCaseRecord("2015-01-05", "CGC15000001")
	require.True(t, ok)
	require.Equal(t, casestore.StatusComplete, rec.Metadata.Status)
	require.Equal(t, 2, rec.Metadata.TotalEntries)
	require.Equal(t, 1, rec.Metadata.TotalLinks)
	require.Equal(t, 1, rec.Metadata.ScrapedLinks)
	require.NotEmpty(t, rec.Metadata.StartedAt)
	require.NotEmpty(t, rec.Metadata.CompletedAt)

	info, err := os.Stat(store.ArtifactPath("2015-01-05", "CGC15000001", "JAN-05-2015_11110001.pdf"))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(sfcourt.MinDocumentSize))

	// pagination was disabled and the tab was closed afterwards
	require.Len(t, fb.opened, 1)
	require.Equal(t, sfcourt.ShowAllValue, fb.opened[0].selects[sfcourt.SelLengthSelect])
	require.True(t, fb.opened[0].closed)
}

func TestCaseScraperRecordsRestricted(t *testing.T) {
	store := casestore.New(t.TempDir())
	fb := &fakeBrowser{newPage: caseViewPage(restrictedFixture)}
	s := newCaseScraper(t, testConfig(), store, fb)

	require.NoError(t, s.Scrape(context.Background(), "2015-01-05", caseRef("CGC15000002")))

	rec, ok := store.ReadCaseRecord("2015-01-05", "CGC15000002")
	require.True(t, ok)
	require.Equal(t, casestore.StatusRestricted, rec.Metadata.Status)
	require.Equal(t, sfcourt.RestrictedReason, rec.Metadata.Reason)
	require.True(t, casestore.Completed(rec.Metadata))
}

func TestCaseScraperSkipsResolvedCase(t *testing.T) {
	store := casestore.New(t.TempDir())
	require.NoError(t, store.WriteRestricted("2015-01-05", "CGC15000003", sfcourt.RestrictedReason))

	// a browser that cannot open tabs proves the skip never touches it
	fb := &fakeBrowser{}
	s := newCaseScraper(t, testConfig(), store, fb)
	require.NoError(t, s.Scrape(context.Background(), "2015-01-05", caseRef("CGC15000003")))
	require.Empty(t, fb.opened)
}

func TestCaseScraperStallsWhenViewNeverRenders(t *testing.T) {
	store := casestore.New(t.TempDir())
	fb := &fakeBrowser{newPage: func() *fakePage {
		p := newFakePage()
		p.onNavigate = func(p *fakePage, url string) {
			p.content = "<html><body>loading</body></html>"
		}
		return p
	}}
	s := newCaseScraper(t, testConfig(), store, fb)

	err := s.Scrape(context.Background(), "2015-01-05", caseRef("CGC15000004"))
	var stall *StallError
	require.ErrorAs(t, err, &stall)
	require.Equal(t, "CGC15000004", stall.CaseNumber)

	// nothing gets recorded for a stalled case, the next session retries it
	_, ok := store.ReadCaseRecord("2015-01-05", "CGC15000004")
	require.False(t, ok)
}

func TestCaseScraperOutlastsChallengeInterstitial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBody())
	}))
	defer server.Close()

	store := casestore.New(t.TempDir())
	fb := &fakeBrowser{newPage: func() *fakePage {
		p := newFakePage()
		p.onNavigate = func(p *fakePage, url string) {
			p.title = "Just a moment..."
			// the human clears the challenge a few polls in
			go func() {
				time.Sleep(time.Millisecond * 6)
				p.update(func(p *fakePage) {
					p.title = "Register of Actions"
					p.content = registerFixture(server.URL)
					p.visible[sfcourt.SelLengthSelect] = true
				})
			}()
		}
		return p
	}}

	cfg := testConfig()
	cfg.CaseLoadAttempts = 50
	cfg.CaseLoadInterval = time.Millisecond
	s := newCaseScraper(t, cfg, store, fb)

	require.NoError(t, s.Scrape(context.Background(), "2015-01-05", caseRef("CGC15000005")))
	rec, ok := store.ReadCaseRecord("2015-01-05", "CGC15000005")
	require.True(t, ok)
	require.Equal(t, casestore.StatusComplete, rec.Metadata.Status)
}

func TestCaseScraperPartialWhenDownloadFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("<html>just a moment</html>"), 1000))
	}))
	defer server.Close()

	store := casestore.New(t.TempDir())
	fb := &fakeBrowser{newPage: caseViewPage(registerFixture(server.URL))}
	s := newCaseScraper(t, testConfig(), store, fb)

	require.NoError(t, s.Scrape(context.Background(), "2015-01-05", caseRef("CGC15000006")))

	rec, ok := store.ReadCaseRecord("2015-01-05", "CGC15000006")
	require.True(t, ok)
	require.Equal(t, casestore.StatusPartial, rec.Metadata.Status)
	require.Equal(t, 1, rec.Metadata.TotalLinks)
	require.Zero(t, rec.Metadata.ScrapedLinks)
	require.False(t, casestore.Completed(rec.Metadata))
}

func TestCaseScraperCancelledContext(t *testing.T) {
	store := casestore.New(t.TempDir())
	fb := &fakeBrowser{newPage: caseViewPage(registerFixture("http://127.0.0.1:0"))}
	s := newCaseScraper(t, testConfig(), store, fb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Scrape(ctx, "2015-01-05", caseRef("CGC15000007"))
	require.Error(t, err)
	var stall *StallError
	require.False(t, errors.As(err, &stall))
}
