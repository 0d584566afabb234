package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/lukman83/pricepulse/internal/stealth"
)

// Headless renders pages in a locally launched Chromium through rod.
// Each Fetch starts its own browser so proxy sessions never leak between
// pages.
type Headless struct {
	Proxy   stealth.ProxyConfig
	Timeout time.Duration
	// BrowserBin overrides the browser binary; ROD_BROWSER_BIN is used when empty.
	BrowserBin string
}

func (h *Headless) Fetch(ctx context.Context, rawURL string) (string, error) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l := launcher.New().Context(ctx).Headless(true).Logger(io.Discard)
	bin := h.BrowserBin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}
	if h.Proxy.Enabled() {
		l = l.Proxy(h.Proxy.Address())
	}

	controlURL, err := l.Launch()
	if err != nil {
		return "", &Error{URL: rawURL, Err: fmt.Errorf("launch browser: %w", err)}
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return "", &Error{URL: rawURL, Err: fmt.Errorf("connect browser: %w", err)}
	}
	defer browser.Close()

	if h.Proxy.Enabled() {
		wait := browser.HandleAuth(h.Proxy.SessionUser(stealth.NewSessionID()), h.Proxy.Password)
		go func() { _ = wait() }()
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: rawURL})
	if err != nil {
		return "", &Error{URL: rawURL, Err: fmt.Errorf("open page: %w", err)}
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return "", &Error{URL: rawURL, Err: fmt.Errorf("wait load: %w", err)}
	}
	// Client-rendered storefronts keep patching the DOM after load.
	_ = page.Timeout(10*time.Second).WaitDOMStable(time.Second, 0.1)

	html, err := page.HTML()
	if err != nil {
		return "", &Error{URL: rawURL, Err: fmt.Errorf("get page HTML: %w", err)}
	}
	return html, nil
}
