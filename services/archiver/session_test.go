package archiver

import (
	"context"
	"strings"
	"testing"
	"time"

	"sfcourt-backend/lib/casestore"
	"sfcourt-backend/lib/scrapers/sfcourt"
	"sfcourt-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

// sessionBrowser builds a browser whose pre-opened tab already carries an
// authenticated portal URL and renders the three-case results fixture.
// When stallCase is set, that case's detail view never renders.
func sessionBrowser(stallCase string) *fakeBrowser {
	search := newFakePage()
	search.location = sfcourt.EntryURL + "?SessionID=TESTSESSION&CT=NF"
	search.content = resultsFixture

	b := &fakeBrowser{tabs: []*fakePage{search}}
	b.newPage = func() *fakePage {
		p := newFakePage()
		p.onNavigate = func(p *fakePage, url string) {
			if !strings.Contains(url, "CaseNum=") {
				return
			}
			if stallCase != "" && strings.Contains(url, "CaseNum="+stallCase) {
				p.content = "<html><body>loading</body></html>"
				return
			}
			p.content = restrictedFixture
		}
		return p
	}
	return b
}

func newTestDriver(t *testing.T, store *casestore.Store, session *fakeSession) *Driver {
	t.Helper()
	client, err := sfcourt.NewClient(sfcourt.ClientOptions{Timeout: time.Second * 5})
	require.NoError(t, err)

	cfg := testConfig()
	cfg.StartDate = day(2015, time.January, 5)
	cfg.EndDate = day(2015, time.January, 5)
	return NewDriver(cfg, store, client, session)
}

func TestDriverCompletesInOneSession(t *testing.T) {
	defer telemetry.SetupForTesting(t, "archiver")()

	store := casestore.New(t.TempDir())
	session := &fakeSession{build: func(int) *fakeBrowser { return sessionBrowser("") }}

	require.NoError(t, newTestDriver(t, store, session).Run(context.Background()))
	require.Equal(t, 1, session.opens)
	require.Equal(t, 1, session.shutdowns)

	summary, ok := store.ReadDaySummary("2015-01-05")
	require.True(t, ok)
	require.True(t, summary.FullyCompleted)
}

func TestDriverRestartsOnStallAndResumes(t *testing.T) {
	store := casestore.New(t.TempDir())
	session := &fakeSession{build: func(attempt int) *fakeBrowser {
		if attempt == 0 {
			// the second case hangs during the first session
			return sessionBrowser("CGC15000002")
		}
		return sessionBrowser("")
	}}

	require.NoError(t, newTestDriver(t, store, session).Run(context.Background()))

	// one restart: the stalled session plus the one that finished the job
	require.Equal(t, 2, session.opens)
	require.Equal(t, 2, session.shutdowns)

	for _, num := range []string{"CGC15000001", "CGC15000002", "CGC15000003"} {
		rec, ok := store.ReadCaseRecord("2015-01-05", num)
		require.True(t, ok, num)
		require.Equal(t, casestore.StatusRestricted, rec.Metadata.Status)
	}
	summary, ok := store.ReadDaySummary("2015-01-05")
	require.True(t, ok)
	require.True(t, summary.FullyCompleted)
}

func TestDriverStopsOnCancel(t *testing.T) {
	store := casestore.New(t.TempDir())
	session := &fakeSession{build: func(int) *fakeBrowser { return sessionBrowser("") }}
	d := newTestDriver(t, store, session)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, d.Run(ctx))
	// the browser is still torn down on the way out
	require.Equal(t, session.opens, session.shutdowns)
}
