package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lukman83/pricepulse/internal/httputil"
	"github.com/lukman83/pricepulse/internal/stealth"
)

func TestStatic_OK(t *testing.T) {
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		fmt.Fprint(w, "<html><h1>Kettle</h1></html>")
	}))
	defer srv.Close()

	html, err := New(srv.Client(), Options{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html><h1>Kettle</h1></html>", html)
	assert.Contains(t, gotAccept, "text/html")
}

func TestStatic_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "robot check", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.Client(), Options{}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.Equal(t, srv.URL, fe.URL)
	assert.True(t, errors.Is(err, ErrStatus))
	assert.True(t, fe.Blocked())
}

func TestStatic_RetriesWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	html, err := New(srv.Client(), Options{Retries: 1, Backoff: time.Millisecond}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", html)
	assert.Equal(t, int32(2), calls.Load())
}

func TestStatic_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(nil, Options{DelayProfile: stealth.ProfileNone, Timeout: 2 * time.Second}).Fetch(context.Background(), url)
	require.Error(t, err)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
	assert.True(t, ShouldFallback(err))
}

func TestStatic_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(srv.Client(), Options{}).Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, ShouldFallback(err))
}

func TestStatic_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("a", 2048))
	}))
	defer srv.Close()

	_, err := New(srv.Client(), Options{MaxBodyBytes: 1024}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httputil.ErrBodyTooLarge))
}

type stubFetcher struct {
	html  string
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context, string) (string, error) {
	s.calls++
	return s.html, s.err
}

func TestFallback(t *testing.T) {
	tests := []struct {
		name          string
		primaryErr    error
		wantSecondary bool
	}{
		{"success", nil, false},
		{"forbidden", &Error{URL: "u", StatusCode: http.StatusForbidden, Err: ErrStatus}, true},
		{"network", &Error{URL: "u", Err: errors.New("connection reset")}, true},
		{"not found", &Error{URL: "u", StatusCode: http.StatusNotFound, Err: ErrStatus}, false},
		{"robots", &Error{URL: "u", Err: stealth.ErrDisallowed}, false},
		{"untyped", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &stubFetcher{html: "static", err: tt.primaryErr}
			secondary := &stubFetcher{html: "rendered"}
			f := &Fallback{Primary: primary, Secondary: secondary, Logger: zap.NewNop()}

			html, err := f.Fetch(context.Background(), "u")
			if tt.wantSecondary {
				require.NoError(t, err)
				assert.Equal(t, "rendered", html)
				assert.Equal(t, 1, secondary.calls)
				return
			}
			assert.Equal(t, 0, secondary.calls)
			assert.Equal(t, tt.primaryErr, err)
		})
	}
}
