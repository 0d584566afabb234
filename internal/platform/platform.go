package platform

import (
	"errors"
	"net/url"
	"strings"

	"github.com/lukman83/pricepulse/internal/models"
)

// ErrUnsupported is returned for URLs on a site with no extractor.
var ErrUnsupported = errors.New("unsupported platform")

// Extractor turns a product page into a structured snapshot.
type Extractor interface {
	Platform() models.Platform
	Extract(html string) (models.ScrapedProduct, error)
}

// DetectPlatform derives the platform from a product URL's host.
func DetectPlatform(rawURL string) models.Platform {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return models.PlatformUnknown
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case strings.Contains(host, "amazon.") || strings.HasPrefix(host, "amzn.") || strings.Contains(host, ".amzn."):
		return models.PlatformAmazon
	case host == "flipkart.com" || strings.HasSuffix(host, ".flipkart.com"):
		return models.PlatformFlipkart
	case host == "myntra.com" || strings.HasSuffix(host, ".myntra.com"):
		return models.PlatformMyntra
	default:
		return models.PlatformUnknown
	}
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("url must use http or https")
	}
	if u.Host == "" {
		return errors.New("url must be absolute")
	}
	return nil
}
