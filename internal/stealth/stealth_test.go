package stealth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyConfig(t *testing.T) {
	cfg := ProxyConfig{Username: "brd-customer-1", Password: "s3cret", Host: "brd.superproxy.io", Port: 22225}
	require.True(t, cfg.Enabled())

	u := cfg.SessionURL("42")
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "brd.superproxy.io:22225", u.Host)
	assert.Equal(t, "brd-customer-1-session-42", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "s3cret", pw)

	assert.False(t, ProxyConfig{Username: "u", Host: "h", Port: 1}.Enabled())
	assert.NotEqual(t, NewSessionID(), NewSessionID())
}

func proxyServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var users []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(r.Header.Get("Proxy-Authorization"), "Basic "))
		user, _, _ := strings.Cut(string(raw), ":")
		mu.Lock()
		users = append(users, user)
		mu.Unlock()
		fmt.Fprint(w, "proxied")
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), users...)
	}
}

func TestSessionProvider_NewSessionPerRequest(t *testing.T) {
	srv, users := proxyServer(t)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	ids := []string{"a1", "b2"}
	n := 0
	sp := &SessionProvider{
		Config: ProxyConfig{Username: "cust", Password: "pw", Host: u.Hostname(), Port: port},
		NewID: func() string {
			id := ids[n]
			n++
			return id
		},
	}
	client := &http.Client{Transport: sp.Transport()}

	for range 2 {
		resp, err := client.Get("http://shop.example.com/p/1")
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, []string{"cust-session-a1", "cust-session-b2"}, users())
}

func TestProviderFor(t *testing.T) {
	assert.Equal(t, "direct", ProviderFor(ProxyConfig{}, nil).Name())
	assert.Equal(t, "session:p.example", ProviderFor(ProxyConfig{Username: "u", Password: "p", Host: "p.example", Port: 1}, nil).Name())
}

func TestStealthTransport_AppliesFingerprint(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
	}))
	defer srv.Close()

	tr := NewTransport(Options{DelayProfile: ProfileNone})
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "hi-IN")

	resp, err := (&http.Client{Transport: tr}).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, gotUA, "Mozilla/5.0")
	assert.Equal(t, "hi-IN", gotLang, "caller headers win")
	assert.Empty(t, req.Header.Get("User-Agent"), "caller request is not mutated")
}

func TestStealthTransport_RespectsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(Options{DelayProfile: ProfileNone, RespectRobots: true})}

	_, err := client.Get(srv.URL + "/private/item")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDisallowed))

	resp, err := client.Get(srv.URL + "/public/item")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDelayProfiles(t *testing.T) {
	p, err := ParseDelayProfile(" Cautious ")
	require.NoError(t, err)
	assert.Equal(t, ProfileCautious, p)

	p, err = ParseDelayProfile("")
	require.NoError(t, err)
	assert.Equal(t, ProfileNormal, p)

	_, err = ParseDelayProfile("ludicrous")
	assert.Error(t, err)

	assert.Nil(t, NewHumanDelay(ProfileNone))

	d := NewHumanDelay(ProfileAggressive)
	for range 20 {
		n := d.Next()
		assert.GreaterOrEqual(t, n, d.MinDelay)
		assert.Less(t, n, d.MaxDelay)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := &HumanDelay{MinDelay: time.Hour, MaxDelay: time.Hour}
	assert.ErrorIs(t, slow.Wait(ctx), context.Canceled)
}
