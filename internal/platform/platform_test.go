package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/pricepulse/internal/models"
)

type stubExtractor struct{ p models.Platform }

func (s stubExtractor) Platform() models.Platform { return s.p }
func (s stubExtractor) Extract(string) (models.ScrapedProduct, error) {
	return models.ScrapedProduct{Platform: s.p}, nil
}

func TestDetectPlatform(t *testing.T) {
	tests := map[string]models.Platform{
		"https://www.amazon.in/dp/B0CX23V2ZK":                        models.PlatformAmazon,
		"https://www.amazon.com/Some-Item/dp/B000123":                models.PlatformAmazon,
		"https://amzn.in/d/abc":                                      models.PlatformAmazon,
		"https://www.flipkart.com/apple-iphone-15/p/itm6ac6485515ae": models.PlatformFlipkart,
		"https://dl.flipkart.com/s/abc":                              models.PlatformFlipkart,
		"https://www.myntra.com/tshirts/roadster/12345/buy":          models.PlatformMyntra,
		"https://www.notflipkart.com.evil.io/p/1":                    models.PlatformUnknown,
		"https://example.com/product/1":                              models.PlatformUnknown,
		"not a url":                                                  models.PlatformUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, DetectPlatform(in), in)
	}
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://www.amazon.in/dp/B0"))
	assert.Error(t, ValidateURL("ftp://www.amazon.in/dp/B0"))
	assert.Error(t, ValidateURL("/dp/B0"))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(stubExtractor{models.PlatformMyntra}, stubExtractor{models.PlatformAmazon})

	e, err := r.ForURL("https://www.amazon.in/dp/B0")
	require.NoError(t, err)
	assert.Equal(t, models.PlatformAmazon, e.Platform())

	_, err = r.ForURL("https://www.flipkart.com/p/1")
	assert.True(t, errors.Is(err, ErrUnsupported))

	assert.Equal(t, []models.Platform{models.PlatformAmazon, models.PlatformMyntra}, r.List())
}

func TestReportProgress(t *testing.T) {
	ReportProgress(context.Background(), Progress{Done: 1})

	var got []Progress
	ctx := WithProgress(context.Background(), func(p Progress) { got = append(got, p) })
	ReportProgress(ctx, Progress{Done: 1, Total: 2, URL: "u"})

	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Total)
}
