// Package api serves the HTTP trigger that runs a batch cycle.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lukman83/pricepulse/internal/logger"
	"github.com/lukman83/pricepulse/internal/pipeline"
)

// ErrCycleRunning is returned by Cron.Trigger while another cycle is active.
var ErrCycleRunning = errors.New("a cycle is already running")

// CycleRunner runs one batch cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*pipeline.Summary, error)
}

// Cron serializes cycle runs so HTTP triggers and the interval ticker
// never overlap.
type Cron struct {
	runner CycleRunner
	log    *zap.Logger
	mu     sync.Mutex
}

func NewCron(runner CycleRunner, log *zap.Logger) *Cron {
	return &Cron{runner: runner, log: logger.OrNop(log)}
}

// Trigger runs one cycle, or returns ErrCycleRunning without waiting.
func (c *Cron) Trigger(ctx context.Context) (*pipeline.Summary, error) {
	if !c.mu.TryLock() {
		return nil, ErrCycleRunning
	}
	defer c.mu.Unlock()
	return c.runner.RunCycle(ctx)
}

// Every triggers a cycle on each tick until ctx ends.
func (c *Cron) Every(ctx context.Context, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if _, err := c.Trigger(ctx); err != nil {
				c.log.Warn("scheduled cycle skipped", zap.Error(err))
			}
		}
	}
}

// Response is the success envelope of the cron endpoint.
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewMux routes GET /api/cron and GET /healthz. When secret is non-empty
// the cron route requires "Authorization: Bearer <secret>".
func NewMux(cron *Cron, secret string) *http.ServeMux {
	mux := http.NewServeMux()

	var cronHandler http.Handler = http.HandlerFunc(cron.serveHTTP)
	if secret != "" {
		cronHandler = BearerAuth(secret, "cron", cronHandler)
	}
	mux.Handle("/api/cron", cronHandler)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, r, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (c *Cron) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, http.MethodGet)
		return
	}

	summary, err := c.Trigger(r.Context())
	switch {
	case errors.Is(err, ErrCycleRunning):
		WriteError(w, http.StatusConflict, "Conflict", err.Error(), r.URL.Path)
		return
	case err != nil:
		c.log.Error("cycle failed", zap.Error(err))
		writeInternalServerError(w, r, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "Ok", Data: summary})
}

// BearerAuth rejects requests whose bearer token does not match token.
func BearerAuth(token, realm string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="`+realm+`"`)
			writeUnauthorized(w, r, "missing Authorization header")
			return
		}
		got, found := strings.CutPrefix(auth, "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="`+realm+`", error="invalid_token"`)
			writeUnauthorized(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewServer wraps h with request logging and the server timeouts used by
// every HTTP surface. Cycles can be slow, so writes get a generous limit.
func NewServer(addr string, h http.Handler, log *zap.Logger) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      logger.RequestLogger(logger.OrNop(log), h),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
}
