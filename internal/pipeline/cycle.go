package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukman83/pricepulse/internal/history"
	"github.com/lukman83/pricepulse/internal/models"
	"github.com/lukman83/pricepulse/internal/notify"
	"github.com/lukman83/pricepulse/internal/platform"
)

// Failure describes one product that was left unchanged by a cycle.
type Failure struct {
	URL      string          `json:"url"`
	Platform models.Platform `json:"platform"`
	Stage    Stage           `json:"stage"`
	Error    string          `json:"error"`
}

// Summary reports one batch cycle. Every tracked product is counted either
// as updated or as failed.
type Summary struct {
	StartedAt     time.Time           `json:"startedAt"`
	Duration      time.Duration       `json:"-"`
	DurationMS    int64               `json:"durationMs"`
	Total         int                 `json:"total"`
	UpdatedCount  int                 `json:"updatedCount"`
	FailedCount   int                 `json:"failedCount"`
	NotifiedCount int                 `json:"notifiedCount"`
	Notifications map[notify.Kind]int `json:"notifications"`
	Products      []models.Product    `json:"products"`
	Failures      []Failure           `json:"failures"`
}

type itemResult struct {
	product  models.Product
	kind     notify.Kind
	notified bool
	err      *ItemError
}

// RunCycle refreshes every tracked product with bounded concurrency. Item
// failures are isolated and reported in the Summary; the only error is a
// failure to list the products. When ctx ends early, items not yet started
// are reported with StageCanceled.
func (p *Pipeline) RunCycle(ctx context.Context) (*Summary, error) {
	started := p.now()
	products, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	p.log.Info("cycle started", zap.Int("products", len(products)), zap.Int("max_concurrent", p.cfg.MaxConcurrent))

	results := make([]itemResult, len(products))
	var done atomic.Int64

	// A plain group: one item's failure must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(p.cfg.MaxConcurrent)
	for i, prod := range products {
		if ctx.Err() != nil {
			results[i] = canceled(prod, ctx.Err())
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = canceled(prod, ctx.Err())
			} else {
				results[i] = p.processItem(ctx, prod)
			}

			var err error
			if results[i].err != nil {
				err = results[i].err
			}
			platform.ReportProgress(ctx, platform.Progress{
				Done:  int(done.Add(1)),
				Total: len(products),
				URL:   prod.URL,
				Err:   err,
			})
			return nil
		})
	}
	_ = g.Wait()

	summary := summarize(started, results)
	summary.Duration = p.now().Sub(started)
	summary.DurationMS = summary.Duration.Milliseconds()

	fields := []zap.Field{
		zap.Int("total", summary.Total),
		zap.Int("updated", summary.UpdatedCount),
		zap.Int("failed", summary.FailedCount),
		zap.Int("notified", summary.NotifiedCount),
		zap.Duration("duration", summary.Duration),
	}
	for kind, n := range summary.Notifications {
		fields = append(fields, zap.Int("kind_"+kind.String(), n))
	}
	p.log.Info("cycle finished", fields...)
	return summary, nil
}

func canceled(prod models.Product, cause error) itemResult {
	return itemResult{
		product: prod,
		err:     &ItemError{URL: prod.URL, Platform: prod.Platform, Stage: StageCanceled, Err: cause},
	}
}

// processItem runs Fetch → Extract → Classify → Merge → Upsert → Mail for
// one product. Nothing is written unless fetch and extraction succeed.
func (p *Pipeline) processItem(ctx context.Context, prev models.Product) itemResult {
	ictx, cancel := context.WithTimeout(ctx, p.cfg.ItemTimeout)
	defer cancel()

	scraped, err := p.scrape(ictx, prev.URL, prev.Platform)
	if err != nil {
		return p.failed(ctx, prev, err)
	}

	kind := notify.Classify(&prev, scraped, p.cfg.ThresholdPercent)
	merged := history.Merge(prev, scraped, p.now())

	saved, err := p.store.Upsert(ictx, merged)
	if err != nil {
		return p.failed(ctx, prev, &ItemError{URL: prev.URL, Platform: scraped.Platform, Stage: StagePersist, Err: err})
	}

	res := itemResult{product: saved, kind: kind}
	if kind != notify.KindNone && len(saved.Subscribers) > 0 {
		res.notified = p.send(ictx, kind, saved, saved.SubscriberEmails()).Success
	}
	return res
}

func (p *Pipeline) failed(ctx context.Context, prev models.Product, err error) itemResult {
	var ie *ItemError
	if !errors.As(err, &ie) {
		ie = &ItemError{URL: prev.URL, Platform: prev.Platform, Stage: StageFetch, Err: err}
	}
	// The whole cycle was cut off, not just this item.
	if ctx.Err() != nil && ie.Stage == StageFetch {
		ie.Stage = StageCanceled
	}
	if ie.Platform == "" {
		ie.Platform = prev.Platform
	}

	p.log.Warn("product update failed",
		zap.String("url", ie.URL),
		zap.String("platform", string(ie.Platform)),
		zap.String("stage", string(ie.Stage)),
		zap.Error(ie.Err),
	)
	return itemResult{product: prev, err: ie}
}

func summarize(started time.Time, results []itemResult) *Summary {
	s := &Summary{
		StartedAt:     started,
		Total:         len(results),
		Notifications: make(map[notify.Kind]int),
		Products:      []models.Product{},
		Failures:      []Failure{},
	}
	for _, r := range results {
		if r.err != nil {
			s.FailedCount++
			s.Failures = append(s.Failures, Failure{
				URL:      r.err.URL,
				Platform: r.err.Platform,
				Stage:    r.err.Stage,
				Error:    r.err.Err.Error(),
			})
			continue
		}
		s.UpdatedCount++
		s.Products = append(s.Products, r.product)
		if r.kind != "" && r.kind != notify.KindNone {
			s.Notifications[r.kind]++
		}
		if r.notified {
			s.NotifiedCount++
		}
	}
	return s
}
