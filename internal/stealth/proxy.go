package stealth

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProxyProvider abstracts a proxy backend.
type ProxyProvider interface {
	Transport() http.RoundTripper
	Name() string
}

// ProxyConfig holds the credentials of a session-aware residential proxy.
// The zero value means no proxy.
type ProxyConfig struct {
	Username string
	Password string
	Host     string
	Port     int
}

// Enabled reports whether enough is set to route through the proxy.
func (c ProxyConfig) Enabled() bool {
	return c.Username != "" && c.Password != "" && c.Host != "" && c.Port > 0
}

// Address is host:port of the proxy endpoint.
func (c ProxyConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SessionUser is the proxy username pinned to one session: "<username>-session-<id>".
func (c ProxyConfig) SessionUser(sessionID string) string {
	return fmt.Sprintf("%s-session-%s", c.Username, sessionID)
}

// SessionURL is the proxy URL for one session.
func (c ProxyConfig) SessionURL(sessionID string) *url.URL {
	return &url.URL{
		Scheme: "http",
		User:   url.UserPassword(c.SessionUser(sessionID), c.Password),
		Host:   c.Address(),
	}
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// SessionProvider routes every request through the proxy under a new
// session id, so the upstream assigns a fresh exit IP each time.
type SessionProvider struct {
	Config ProxyConfig
	// NewID overrides session id generation; defaults to NewSessionID.
	NewID func() string
	// Base supplies TLS and dial settings; its Proxy field is replaced.
	Base *http.Transport

	once      sync.Once
	transport *http.Transport
}

func (s *SessionProvider) Name() string { return "session:" + s.Config.Host }

func (s *SessionProvider) Transport() http.RoundTripper {
	s.once.Do(func() {
		newID := s.NewID
		if newID == nil {
			newID = NewSessionID
		}
		if s.Base != nil {
			s.transport = s.Base.Clone()
		} else {
			s.transport = &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
			}
		}
		s.transport.Proxy = func(*http.Request) (*url.URL, error) {
			return s.Config.SessionURL(newID()), nil
		}
		// No pooled connections: a reused connection would reuse the session.
		s.transport.DisableKeepAlives = true
	})
	return s.transport
}

// DirectProvider routes traffic directly (no proxy).
type DirectProvider struct {
	Base http.RoundTripper
}

func (d *DirectProvider) Transport() http.RoundTripper {
	if d.Base == nil {
		return http.DefaultTransport
	}
	return d.Base
}

func (d *DirectProvider) Name() string { return "direct" }

// ProviderFor returns a SessionProvider when cfg is usable and a
// DirectProvider over base otherwise.
func ProviderFor(cfg ProxyConfig, base http.RoundTripper) ProxyProvider {
	if cfg.Enabled() {
		bt, _ := base.(*http.Transport)
		return &SessionProvider{Config: cfg, Base: bt}
	}
	return &DirectProvider{Base: base}
}
