// Package fetch retrieves product page HTML through the stealth transport,
// optionally rendering it in a headless browser when the static request is
// blocked.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lukman83/pricepulse/internal/httputil"
	"github.com/lukman83/pricepulse/internal/stealth"
)

// ErrStatus marks a response outside the 2xx range.
var ErrStatus = errors.New("unexpected status")

// Fetcher retrieves the HTML of one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Error is a fetch failure. StatusCode is zero for network-level failures.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Blocked reports whether the storefront answered with a bot wall.
func (e *Error) Blocked() bool {
	return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusServiceUnavailable
}

// Options configures the static fetcher and, when New builds the client
// itself, its stealth transport.
type Options struct {
	Proxy         stealth.ProxyConfig
	Timeout       time.Duration
	Retries       int
	Backoff       time.Duration
	MaxBodyBytes  int64
	RatePerSecond float64
	RateBurst     int
	DelayProfile  stealth.DelayProfile
	RespectRobots bool
}

// Static fetches pages with plain HTTP GETs.
type Static struct {
	client *http.Client
	opts   Options
}

// New returns a static fetcher. A nil client gets a StealthTransport built
// from opts, routing each request through a fresh proxy session when
// opts.Proxy is set.
func New(client *http.Client, opts Options) *Static {
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = httputil.DefaultMaxBody
	}
	if client == nil {
		client = httputil.NewHTTPClient(stealth.NewTransport(stealth.Options{
			Proxy:         opts.Proxy,
			RatePerSecond: opts.RatePerSecond,
			RateBurst:     opts.RateBurst,
			DelayProfile:  opts.DelayProfile,
			RespectRobots: opts.RespectRobots,
		}), opts.Timeout)
	}
	return &Static{client: client, opts: opts}
}

func (s *Static) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}
	httputil.SetHeaders(req, httputil.BrowserHeaders())

	resp, err := httputil.DoWithRetry(s.client, req, httputil.Retry{Max: s.opts.Retries, Backoff: s.opts.Backoff})
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: ErrStatus}
	}

	body, err := httputil.ReadBody(resp, s.opts.MaxBodyBytes)
	if err != nil {
		return "", &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	return string(body), nil
}

// ShouldFallback reports whether err is worth retrying in a real browser:
// network failures and 403/503 block pages, but not cancellation or a
// robots.txt refusal.
func ShouldFallback(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	if fe.StatusCode != 0 {
		return fe.Blocked()
	}
	return !errors.Is(fe.Err, context.Canceled) &&
		!errors.Is(fe.Err, context.DeadlineExceeded) &&
		!errors.Is(fe.Err, stealth.ErrDisallowed)
}

// Fallback tries Primary and, when ShouldFallback, Secondary.
type Fallback struct {
	Primary   Fetcher
	Secondary Fetcher
	Logger    *zap.Logger
}

func (f *Fallback) Fetch(ctx context.Context, url string) (string, error) {
	html, err := f.Primary.Fetch(ctx, url)
	if err == nil || f.Secondary == nil || ctx.Err() != nil || !ShouldFallback(err) {
		return html, err
	}

	if f.Logger != nil {
		f.Logger.Info("static fetch failed, retrying headless", zap.String("url", url), zap.Error(err))
	}
	html, herr := f.Secondary.Fetch(ctx, url)
	if herr != nil {
		return "", herr
	}
	return html, nil
}
