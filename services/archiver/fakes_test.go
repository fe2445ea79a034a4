package archiver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"sfcourt-backend/lib/browser"
	"sfcourt-backend/lib/casestore"
	"sfcourt-backend/lib/scrapers/sfcourt"

	"github.com/stretchr/testify/require"
)

// fakePage is a scripted stand-in for a browser tab. State mutations go
// through update so tests can flip page state from other goroutines.
type fakePage struct {
	mu       sync.Mutex
	title    string
	content  string
	location string
	visible  map[string]bool
	text     map[string]string
	fills    map[string]string
	selects  map[string]string
	clicks   []string
	closed   bool

	// reshapes the page when a navigation lands
	onNavigate func(p *fakePage, url string)
}

func newFakePage() *fakePage {
	return &fakePage{
		visible: map[string]bool{},
		text:    map[string]string{},
		fills:   map[string]string{},
		selects: map[string]string{},
	}
}

func (p *fakePage) update(fn func(p *fakePage)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = url
	if p.onNavigate != nil {
		p.onNavigate(p, url)
	}
	return nil
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, selector)
	return nil
}

func (p *fakePage) Fill(_ context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fills[selector] = value
	return nil
}

func (p *fakePage) SelectOption(_ context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selects[selector] = value
	return nil
}

func (p *fakePage) Visible(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[selector], nil
}

func (p *fakePage) Text(_ context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text[selector], nil
}

func (p *fakePage) Title(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title, nil
}

func (p *fakePage) Content(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content, nil
}

func (p *fakePage) Location(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location, nil
}

func (p *fakePage) Close(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeBrowser struct {
	mu   sync.Mutex
	tabs []*fakePage
	// produces the page handed out by NewPage; nil means tabs cannot be
	// opened anymore
	newPage func() *fakePage
	opened  []*fakePage
	closed  bool
}

func (b *fakeBrowser) NewPage(_ context.Context) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.newPage == nil {
		return nil, errors.New("browser is gone")
	}
	p := b.newPage()
	b.opened = append(b.opened, p)
	return p, nil
}

func (b *fakeBrowser) Pages(_ context.Context) ([]browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pages := make([]browser.Page, 0, len(b.tabs)+len(b.opened))
	for _, p := range b.tabs {
		pages = append(pages, p)
	}
	for _, p := range b.opened {
		pages = append(pages, p)
	}
	return pages, nil
}

func (b *fakeBrowser) Cookies(_ context.Context) ([]*http.Cookie, error) {
	return []*http.Cookie{{Name: "cf_clearance", Value: "test"}}, nil
}

func (b *fakeBrowser) Close(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type fakeSession struct {
	mu        sync.Mutex
	opens     int
	shutdowns int
	build     func(attempt int) *fakeBrowser
}

func (s *fakeSession) Open(_ context.Context) (browser.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.build(s.opens)
	s.opens++
	return b, nil
}

func (s *fakeSession) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdowns++
	return nil
}

func testConfig() Config {
	return Config{
		PortalURL:             sfcourt.EntryURL,
		DownloadConcurrency:   2,
		CaseLoadAttempts:      3,
		CaseLoadInterval:      time.Millisecond * 2,
		ChallengePollInterval: time.Millisecond,
		CaseThrottle:          time.Millisecond,
		SettleDelay:           time.Millisecond,
		RestartDelay:          time.Millisecond,
	}
}

func newCaseScraper(t *testing.T, cfg Config, store *casestore.Store, fb *fakeBrowser) *CaseScraper {
	t.Helper()
	client, err := sfcourt.NewClient(sfcourt.ClientOptions{Timeout: time.Second * 5})
	require.NoError(t, err)
	return &CaseScraper{
		cfg:     cfg,
		store:   store,
		browser: fb,
		fetcher: &sfcourt.Fetcher{
			Client:         client,
			Store:          store,
			BackoffUnit:    time.Millisecond,
			ChallengePause: time.Millisecond,
		},
	}
}

const resultsFixture = `
<html><body>
<table id="example"><tbody>
<tr><td><a href="CaseInfo.dll?CaseNum=CGC15000001&SessionID=X">CGC-15-000001</a></td><td>SMITH VS JONES</td></tr>
<tr><td><a href="CaseInfo.dll?CaseNum=CGC15000002&SessionID=X">CGC-15-000002</a></td><td>DOE VS ROE</td></tr>
<tr><td><a href="CaseInfo.dll?CaseNum=CGC15000003&SessionID=X">CGC-15-000003</a></td><td>ACME CORP VS ZENITH LLC</td></tr>
</tbody></table>
<div id="example_info">Showing 1 to 3 of 3 entries</div>
</body></html>`

const restrictedFixture = `<html><body>Per CCP 1161.2 this case is not available.</body></html>`

// registerFixture renders a case view with two action rows, one of which
// links a document served by the given base URL.
func registerFixture(baseURL string) string {
	return fmt.Sprintf(`
<html><body>
<select name="example_length"></select>
<table id="example"><tbody>
<tr><td>JAN-05-2015</td><td>COMPLAINT FILED</td><td><a href="%s/view?URL=View%%26DocID%%3D11110001%%26Type%%3DPDF">View</a></td><td>435.00</td></tr>
<tr><td>JAN-05-2015</td><td>SUMMONS ISSUED</td><td></td><td></td></tr>
</tbody></table>
</body></html>`, baseURL)
}

// caseViewPage produces a tab that renders the given HTML for any case
// detail navigation.
func caseViewPage(html string) func() *fakePage {
	return func() *fakePage {
		p := newFakePage()
		p.onNavigate = func(p *fakePage, url string) {
			p.content = html
			p.visible[sfcourt.SelLengthSelect] = true
		}
		return p
	}
}
