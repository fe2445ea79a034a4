package browser

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// how long any single tab operation may take before it is reported as a
// transient UI failure
const opTimeout = time.Second * 15

// RemoteBrowser attaches to an already-running Chrome over its devtools
// port. The Chrome instance stays visible so a human can clear anti-bot
// challenges in it.
type RemoteBrowser struct {
	browserCtx context.Context
	cancel     context.CancelFunc

	// one attach context per live target, reused across Pages calls so
	// repeated tab polling does not pile up child contexts
	mu   sync.Mutex
	tabs map[target.ID]*tab
}

var _ Browser = (*RemoteBrowser)(nil)

func Attach(ctx context.Context, debugURL string) (*RemoteBrowser, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, debugURL, chromedp.NoModifyURL)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// force the connection to be established now so attach failures
	// surface here instead of on the first navigation
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("attach to chrome at %s: %w", debugURL, err)
	}

	return &RemoteBrowser{
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		tabs: map[target.ID]*tab{},
	}, nil
}

func (b *RemoteBrowser) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, err
	}
	return &tab{ctx: tabCtx, cancel: cancel}, nil
}

func (b *RemoteBrowser) Pages(ctx context.Context) ([]Page, error) {
	infos, err := chromedp.Targets(b.browserCtx)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	live := map[target.ID]bool{}
	var pages []Page
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		live[info.TargetID] = true
		t, ok := b.tabs[info.TargetID]
		if !ok {
			tabCtx, cancel := chromedp.NewContext(b.browserCtx, chromedp.WithTargetID(info.TargetID))
			t = &tab{ctx: tabCtx, cancel: cancel, targetID: info.TargetID}
			b.tabs[info.TargetID] = t
		}
		pages = append(pages, t)
	}
	pruneTabs(b.tabs, live)
	return pages, nil
}

// pruneTabs releases the attach contexts of cached tabs whose target no
// longer exists (closed by a human, or by tab.Close).
func pruneTabs(tabs map[target.ID]*tab, live map[target.ID]bool) {
	for id, t := range tabs {
		if !live[id] {
			t.cancel()
			delete(tabs, id)
		}
	}
}

func (b *RemoteBrowser) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	var out []*http.Cookie
	err := chromedp.Run(b.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, &http.Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: c.Domain,
				Path:   c.Path,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *RemoteBrowser) Close(ctx context.Context) error {
	b.mu.Lock()
	pruneTabs(b.tabs, nil)
	b.mu.Unlock()
	b.cancel()
	return nil
}

type tab struct {
	ctx      context.Context
	cancel   context.CancelFunc
	targetID target.ID
}

var _ Page = (*tab)(nil)

func (t *tab) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(t.ctx, opTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(opCtx, actions...) }()
	select {
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (t *tab) Navigate(ctx context.Context, url string) error {
	return t.run(ctx, chromedp.Navigate(url))
}

func (t *tab) Click(ctx context.Context, selector string) error {
	return t.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (t *tab) Fill(ctx context.Context, selector, value string) error {
	return t.run(ctx, chromedp.SetValue(selector, value, chromedp.ByQuery))
}

func (t *tab) SelectOption(ctx context.Context, selector, value string) error {
	var ok bool
	js := fmt.Sprintf(
		`(() => {
			const el = document.querySelector(%q);
			if (!el) return false;
			el.value = %q;
			el.dispatchEvent(new Event('change', {bubbles: true}));
			return true;
		})()`, selector, value)
	if err := t.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("select %s not found", selector)
	}
	return nil
}

func (t *tab) Visible(ctx context.Context, selector string) (bool, error) {
	var visible bool
	js := fmt.Sprintf(
		`(() => {
			const el = document.querySelector(%q);
			if (!el) return false;
			const style = window.getComputedStyle(el);
			return style.display !== 'none' && style.visibility !== 'hidden' && el.offsetParent !== null;
		})()`, selector)
	if err := t.run(ctx, chromedp.Evaluate(js, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

func (t *tab) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := t.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

func (t *tab) Title(ctx context.Context) (string, error) {
	var title string
	if err := t.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (t *tab) Content(ctx context.Context) (string, error) {
	var html string
	if err := t.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (t *tab) Location(ctx context.Context) (string, error) {
	var url string
	if err := t.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (t *tab) Close(ctx context.Context) error {
	err := chromedp.Cancel(t.ctx)
	t.cancel()
	return err
}
