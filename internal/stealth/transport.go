package stealth

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// ErrDisallowed is returned when robots.txt forbids the request.
var ErrDisallowed = errors.New("blocked by robots.txt")

// StealthTransport is an http.RoundTripper that applies the full pipeline:
// Fingerprint → RobotsCheck → RateLimiter → HumanDelay → Proxy → Send
type StealthTransport struct {
	Fingerprint *FingerprintPool
	Robots      *RobotsChecker
	RateLimiter *rate.Limiter
	Delay       *HumanDelay
	Proxy       ProxyProvider
}

// Options configures NewTransport.
type Options struct {
	Proxy         ProxyConfig
	RatePerSecond float64
	RateBurst     int
	DelayProfile  DelayProfile
	RespectRobots bool
	// Base is the direct transport used when no proxy is configured.
	Base http.RoundTripper
}

// NewTransport assembles a StealthTransport from opts. A non-positive rate
// disables the limiter.
func NewTransport(opts Options) *StealthTransport {
	t := &StealthTransport{
		Fingerprint: NewFingerprintPool(),
		Delay:       NewHumanDelay(opts.DelayProfile),
		Proxy:       ProviderFor(opts.Proxy, opts.Base),
	}
	if opts.RatePerSecond > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		t.RateLimiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	if opts.RespectRobots {
		t.Robots = NewRobotsChecker(nil)
	}
	return t
}

func (t *StealthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrip must not mutate the caller's request.
	req = req.Clone(req.Context())

	fp := Fingerprint{UserAgent: req.Header.Get("User-Agent")}
	if t.Fingerprint != nil {
		fp = t.Fingerprint.Next()
		fp.Apply(req)
	}

	if t.Robots != nil {
		allowed, err := t.Robots.IsAllowed(req.Context(), fp.UserAgent, req.URL.String())
		if err == nil && !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, req.URL.Path)
		}
	}

	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if t.Delay != nil {
		if err := t.Delay.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
	}

	var next http.RoundTripper
	if t.Proxy != nil {
		next = t.Proxy.Transport()
	}
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}
