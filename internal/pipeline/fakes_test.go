package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lukman83/pricepulse/internal/extract"
	"github.com/lukman83/pricepulse/internal/fetch"
	"github.com/lukman83/pricepulse/internal/mail"
	"github.com/lukman83/pricepulse/internal/models"
	"github.com/lukman83/pricepulse/internal/platform"
)

// memStore keeps products as encoded JSON so tests can compare stored bytes.
type memStore struct {
	mu       sync.Mutex
	docs     map[string][]byte
	failOn   map[string]bool
	listErr  error
	upserted int
}

func newMemStore(products ...models.Product) *memStore {
	s := &memStore{docs: make(map[string][]byte), failOn: make(map[string]bool)}
	for _, p := range products {
		b, err := json.Marshal(p)
		if err != nil {
			panic(err)
		}
		s.docs[p.URL] = b
	}
	return s
}

func (s *memStore) ListAll(context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	urls := make([]string, 0, len(s.docs))
	for u := range s.docs {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	out := make([]models.Product, 0, len(urls))
	for _, u := range urls {
		var p models.Product
		if err := json.Unmarshal(s.docs[u], &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) FindByURL(_ context.Context, url string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.docs[url]
	if !ok {
		return nil, nil
	}
	var p models.Product
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *memStore) Upsert(_ context.Context, p models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[p.URL] {
		return models.Product{}, errors.New("disk full")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return models.Product{}, err
	}
	s.docs[p.URL] = b
	s.upserted++
	return p, nil
}

func (s *memStore) raw(url string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.docs[url]...)
}

func (s *memStore) get(url string) models.Product {
	p, _ := s.FindByURL(context.Background(), url)
	if p == nil {
		return models.Product{}
	}
	return *p
}

// pageFetcher serves fixed pages by URL. Unknown URLs fail like a 404.
type pageFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	block    bool
	inFlight int
	maxSeen  int
	calls    int
	delay    time.Duration
}

func (f *pageFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	page, ok := f.pages[url]
	block, delay := f.block, f.delay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if block {
		<-ctx.Done()
		return "", &fetch.Error{URL: url, Err: ctx.Err()}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", &fetch.Error{URL: url, Err: ctx.Err()}
		}
	}
	if !ok {
		return "", &fetch.Error{URL: url, StatusCode: 404, Err: fetch.ErrStatus}
	}
	return page, nil
}

// tableExtractor maps page bodies to scrape results; "broken" pages fail.
type tableExtractor struct {
	platform models.Platform
	results  map[string]models.ScrapedProduct
}

func (e *tableExtractor) Platform() models.Platform { return e.platform }

func (e *tableExtractor) Extract(html string) (models.ScrapedProduct, error) {
	sp, ok := e.results[html]
	if !ok {
		return models.ScrapedProduct{}, &extract.Error{Platform: e.platform, Missing: []string{"title", "price"}, Err: extract.ErrMissingEssential}
	}
	return sp, nil
}

type sentMail struct {
	subject    string
	body       string
	recipients []string
}

type recordingMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	result mail.Result
}

func (m *recordingMailer) Send(_ context.Context, htmlBody, subject string, recipients []string) mail.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{subject: subject, body: htmlBody, recipients: append([]string(nil), recipients...)})
	return m.result
}

func (m *recordingMailer) all() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

// stepClock advances by one minute on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func product(url string, prices ...float64) models.Product {
	p := models.Product{
		ScrapedProduct: models.ScrapedProduct{
			URL:           url,
			Platform:      models.PlatformAmazon,
			Title:         "Product " + url,
			Currency:      "$",
			CurrentPrice:  prices[len(prices)-1],
			OriginalPrice: prices[0],
		},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, pr := range prices {
		p.PriceHistory = append(p.PriceHistory, models.PriceHistoryItem{
			Price: pr,
			Date:  p.CreatedAt.Add(time.Duration(i) * 24 * time.Hour),
		})
	}
	p.LowestPrice, p.HighestPrice = prices[0], prices[0]
	return p
}

func scraped(url string, current, original float64) models.ScrapedProduct {
	return models.ScrapedProduct{
		URL:           url,
		Platform:      models.PlatformAmazon,
		Title:         "Product " + url,
		Currency:      "$",
		CurrentPrice:  current,
		OriginalPrice: original,
		DiscountRate:  extract.Discount(original, current),
		Description:   extract.DefaultDescription,
	}
}

func subscribers(emails ...string) []models.Subscriber {
	out := make([]models.Subscriber, 0, len(emails))
	for _, e := range emails {
		out = append(out, models.Subscriber{Email: e, DateAdded: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)})
	}
	return out
}

func amazonURL(n int) string {
	return fmt.Sprintf("https://www.amazon.in/dp/B0%08d", n)
}

func registry(results map[string]models.ScrapedProduct) *platform.Registry {
	return platform.NewRegistry(&tableExtractor{platform: models.PlatformAmazon, results: results})
}
