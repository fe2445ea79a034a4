package sfcourt

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"time"

	"sfcourt-backend/lib/restyutil"
	"sfcourt-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/sfcourt")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Client fetches document bytes over plain HTTP, riding on the session the
// human established in the browser. All concurrent document fetches of a
// case share it read-only.
type Client struct {
	Http *resty.Client
}

type ClientOptions struct {
	UserAgent string
	Timeout   time.Duration
	// when set, every HTTP exchange is dumped to disk for debugging
	DebugOutput *restyutil.FilesystemOutput
}

func NewClient(opts ClientOptions) (*Client, error) {
	client := resty.New()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	client.SetHeader("user-agent", ua)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 60
	}
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "scrapers/sfcourt/http")
	if opts.DebugOutput != nil {
		opts.DebugOutput.CaptureClient(client)
	}

	return &Client{Http: client}, nil
}

// ImportCookies copies the browser's cookies (challenge clearance included)
// into the HTTP client so document fetches are recognized as the same
// session.
func (c *Client) ImportCookies(cookies []*http.Cookie) {
	c.Http.SetCookies(cookies)
}

func (c *Client) Get(ctx context.Context, url string) (*resty.Response, error) {
	return c.Http.R().SetContext(ctx).Get(url)
}
