// Package pipeline wires fetching, extraction, history, notification and
// persistence into the track, subscribe and batch-cycle operations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lukman83/pricepulse/internal/email"
	"github.com/lukman83/pricepulse/internal/fetch"
	"github.com/lukman83/pricepulse/internal/history"
	"github.com/lukman83/pricepulse/internal/logger"
	"github.com/lukman83/pricepulse/internal/mail"
	"github.com/lukman83/pricepulse/internal/models"
	"github.com/lukman83/pricepulse/internal/notify"
	"github.com/lukman83/pricepulse/internal/platform"
	"github.com/lukman83/pricepulse/internal/store"
)

// Stage names the step of a product update that failed.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageExtract  Stage = "extract"
	StagePersist  Stage = "persist"
	StageCanceled Stage = "canceled"
)

// ItemError is a failure of one product, tagged with its stage.
type ItemError struct {
	URL      string
	Platform models.Platform
	Stage    Stage
	Err      error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// ErrInvalidEmail is returned by Subscribe for an unparseable address.
var ErrInvalidEmail = errors.New("invalid email address")

// Config tunes the batch cycle.
type Config struct {
	ThresholdPercent float64
	MaxConcurrent    int
	ItemTimeout      time.Duration
}

// DefaultConfig matches the documented defaults.
func DefaultConfig() Config {
	return Config{
		ThresholdPercent: notify.DefaultThresholdPercent,
		MaxConcurrent:    5,
		ItemTimeout:      45 * time.Second,
	}
}

// Deps are the collaborators of a Pipeline. Mailer defaults to
// mail.Disabled, Logger to a no-op logger and Now to time.Now.
type Deps struct {
	Store      store.Store
	Fetcher    fetch.Fetcher
	Extractors *platform.Registry
	Mailer     mail.Mailer
	Logger     *zap.Logger
	Now        func() time.Time
}

// Pipeline runs product updates against its collaborators. It is safe for
// concurrent use.
type Pipeline struct {
	store      store.Store
	fetcher    fetch.Fetcher
	extractors *platform.Registry
	mailer     mail.Mailer
	log        *zap.Logger
	now        func() time.Time
	cfg        Config
}

func New(deps Deps, cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = def.ItemTimeout
	}
	p := &Pipeline{
		store:      deps.Store,
		fetcher:    deps.Fetcher,
		extractors: deps.Extractors,
		mailer:     deps.Mailer,
		log:        logger.OrNop(deps.Logger),
		now:        deps.Now,
		cfg:        cfg,
	}
	if p.mailer == nil {
		p.mailer = mail.Disabled{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Scrape fetches and extracts one product page without touching the store.
func (p *Pipeline) Scrape(ctx context.Context, rawURL string) (models.ScrapedProduct, error) {
	return p.scrape(ctx, rawURL, platform.DetectPlatform(rawURL))
}

func (p *Pipeline) scrape(ctx context.Context, rawURL string, plat models.Platform) (models.ScrapedProduct, error) {
	if err := platform.ValidateURL(rawURL); err != nil {
		return models.ScrapedProduct{}, &ItemError{URL: rawURL, Platform: plat, Stage: StageFetch, Err: err}
	}
	if plat == "" || plat == models.PlatformUnknown {
		plat = platform.DetectPlatform(rawURL)
	}
	ex, err := p.extractors.Get(plat)
	if err != nil {
		return models.ScrapedProduct{}, &ItemError{URL: rawURL, Platform: plat, Stage: StageExtract, Err: err}
	}

	html, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return models.ScrapedProduct{}, &ItemError{URL: rawURL, Platform: plat, Stage: StageFetch, Err: err}
	}

	scraped, err := ex.Extract(html)
	if err != nil {
		return models.ScrapedProduct{}, &ItemError{URL: rawURL, Platform: plat, Stage: StageExtract, Err: err}
	}
	scraped.URL = rawURL
	scraped.Platform = plat
	return scraped, nil
}

// Track scrapes rawURL and stores it, appending to the history of an
// already tracked product or creating a one-entry history.
func (p *Pipeline) Track(ctx context.Context, rawURL string) (models.Product, error) {
	rawURL = strings.TrimSpace(rawURL)
	scraped, err := p.Scrape(ctx, rawURL)
	if err != nil {
		return models.Product{}, err
	}

	prev, err := p.store.FindByURL(ctx, rawURL)
	if err != nil {
		return models.Product{}, &ItemError{URL: rawURL, Platform: scraped.Platform, Stage: StagePersist, Err: err}
	}
	base := models.Product{ScrapedProduct: models.ScrapedProduct{URL: rawURL}}
	if prev != nil {
		base = *prev
	}

	saved, err := p.store.Upsert(ctx, history.Merge(base, scraped, p.now()))
	if err != nil {
		return models.Product{}, &ItemError{URL: rawURL, Platform: scraped.Platform, Stage: StagePersist, Err: err}
	}
	p.log.Info("product tracked",
		zap.String("url", rawURL),
		zap.String("platform", string(saved.Platform)),
		zap.Float64("price", saved.CurrentPrice),
		zap.Int("history", len(saved.PriceHistory)),
	)
	return saved, nil
}

// Subscription is the outcome of Subscribe. Mail is nil when no welcome
// email was attempted because the address was already subscribed.
type Subscription struct {
	Product models.Product `json:"product"`
	Added   bool           `json:"added"`
	Mail    *mail.Result   `json:"mail,omitempty"`
}

// Subscribe adds addr to the product at rawURL, tracking it first when
// needed, and sends a welcome email to addr only. Subscribing an address
// twice is a no-op.
func (p *Pipeline) Subscribe(ctx context.Context, rawURL, addr string) (Subscription, error) {
	parsed, err := netmail.ParseAddress(strings.TrimSpace(addr))
	if err != nil {
		return Subscription{}, fmt.Errorf("%w: %q", ErrInvalidEmail, addr)
	}
	addr = parsed.Address
	rawURL = strings.TrimSpace(rawURL)

	prod, err := p.store.FindByURL(ctx, rawURL)
	if err != nil {
		return Subscription{}, &ItemError{URL: rawURL, Stage: StagePersist, Err: err}
	}
	if prod == nil {
		tracked, err := p.Track(ctx, rawURL)
		if err != nil {
			return Subscription{}, err
		}
		prod = &tracked
	}
	if prod.HasSubscriber(addr) {
		return Subscription{Product: *prod}, nil
	}

	next := prod.Clone()
	next.Subscribers = append(next.Subscribers, models.Subscriber{Email: addr, DateAdded: p.now()})
	saved, err := p.store.Upsert(ctx, next)
	if err != nil {
		return Subscription{}, &ItemError{URL: rawURL, Platform: prod.Platform, Stage: StagePersist, Err: err}
	}

	res := p.send(ctx, notify.KindWelcome, saved, []string{addr})
	return Subscription{Product: saved, Added: true, Mail: &res}, nil
}

// List returns every tracked product.
func (p *Pipeline) List(ctx context.Context) ([]models.Product, error) {
	products, err := p.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// send composes and delivers one notification. Failures are logged and
// reported in the Result; they never fail the caller.
func (p *Pipeline) send(ctx context.Context, kind notify.Kind, prod models.Product, recipients []string) mail.Result {
	msg, err := email.Compose(kind, email.InfoFrom(prod))
	if err != nil {
		p.log.Warn("compose notification", zap.String("url", prod.URL), zap.String("kind", kind.String()), zap.Error(err))
		return mail.Result{Error: err.Error()}
	}

	res := p.mailer.Send(ctx, msg.HTMLBody, msg.Subject, recipients)
	if !res.Success {
		p.log.Warn("notification not delivered",
			zap.String("url", prod.URL),
			zap.String("kind", kind.String()),
			zap.Int("recipients", len(recipients)),
			zap.String("error", res.Error),
		)
		return res
	}
	p.log.Info("notification sent",
		zap.String("url", prod.URL),
		zap.String("kind", kind.String()),
		zap.Int("recipients", len(recipients)),
	)
	return res
}
