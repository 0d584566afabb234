package flipkart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/pricepulse/internal/extract"
	"github.com/lukman83/pricepulse/internal/models"
)

const currentPage = `<!DOCTYPE html>
<html><head>
<script id="jsonLD" type="application/ld+json">[{"@context":"http://schema.org","@type":"Product",
 "name":"Apple iPhone 15","image":"https://rukminim2.flixcart.com/image/iphone15.jpeg",
 "offers":{"@type":"Offer","price":65999,"priceCurrency":"INR","availability":"http://schema.org/InStock"}}]</script>
</head><body>
<div class="r2CdBx">
  <a href="/">Home</a><a href="/mobiles-accessories">Mobiles &amp; Accessories</a>
  <a href="/mobiles">Mobiles</a><a href="#">Apple iPhone 15</a>
</div>
<h1><span class="VU-ZEz"> Apple iPhone 15 (Black, 128 GB) </span></h1>
<div class="XQDdHH">4.6<img src="star.svg"></div>
<span class="Wphh3N"><span>1,23,456 Ratings &amp; 5,432 Reviews</span></span>
<div class="Nx9bqj CxhGGd">₹65,999</div>
<div class="yRaY8j A6+E6v">₹79,900</div>
<img class="DByuf4" src="https://rukminim2.flixcart.com/image/small.jpeg">
<div class="_1mXcCf">Dynamic Island bubbles up alerts.</div>
<div class="xFVion"><ul><li>128 GB ROM</li><li>48MP Rear Camera</li></ul></div>
<table class="_0ZhAN9">
  <tr><td>Model Name</td><td><ul><li>iPhone 15</li></ul></td></tr>
  <tr><td>Color</td><td><ul><li>Black</li></ul></td></tr>
</table>
</body></html>`

func TestExtract_CurrentLayout(t *testing.T) {
	sp, err := New().Extract(currentPage)
	require.NoError(t, err)

	assert.Equal(t, models.PlatformFlipkart, sp.Platform)
	assert.Equal(t, "Apple iPhone 15 (Black, 128 GB)", sp.Title)
	assert.Equal(t, 65999.0, sp.CurrentPrice)
	assert.Equal(t, 79900.0, sp.OriginalPrice)
	assert.Equal(t, 17.0, sp.DiscountRate)
	assert.Equal(t, "₹", sp.Currency)
	assert.False(t, sp.IsOutOfStock)
	assert.Equal(t, 4.6, sp.Stars)
	assert.Equal(t, 123456, sp.ReviewsCount)
	assert.Equal(t, "Mobiles & Accessories > Mobiles", sp.Category)
	assert.Equal(t, "https://rukminim2.flixcart.com/image/iphone15.jpeg", sp.Image)
	assert.Equal(t,
		"Dynamic Island bubbles up alerts.\n\n• 128 GB ROM\n• 48MP Rear Camera\n\nModel Name: iPhone 15\nColor: Black",
		sp.Description)
}

const legacyPage = `<html><body>
<div class="_1MR4o5"><a>Home</a><a>Clothing</a></div>
<span class="B_NuCI">Roadster Men Cotton T-Shirt</span>
<div class="_30jeq3 _16Jk6d">₹499</div>
<div class="_16FRp0">Sold Out</div>
<img class="_396cs4" src="https://rukminim1.flixcart.com/image/tee.jpeg">
<div class="_3LWZlK">4.1</div>
<span class="_2_R_DZ">2,310 ratings</span>
</body></html>`

func TestExtract_LegacyLayout(t *testing.T) {
	sp, err := New().Extract(legacyPage)
	require.NoError(t, err)

	assert.Equal(t, "Roadster Men Cotton T-Shirt", sp.Title)
	assert.Equal(t, 499.0, sp.CurrentPrice)
	assert.Equal(t, 499.0, sp.OriginalPrice)
	assert.Zero(t, sp.DiscountRate)
	assert.True(t, sp.IsOutOfStock)
	assert.Equal(t, "https://rukminim1.flixcart.com/image/tee.jpeg", sp.Image)
	assert.Equal(t, 4.1, sp.Stars)
	assert.Equal(t, 2310, sp.ReviewsCount)
	assert.Equal(t, "Clothing", sp.Category)
	assert.Equal(t, "₹", sp.Currency)
	assert.Equal(t, extract.DefaultDescription, sp.Description)
}

func TestExtract_CurrentlyUnavailable(t *testing.T) {
	page := `<html><body><h1>Desk Lamp</h1><div class="_30jeq3">₹1,099</div>
<div class="Z8JjpR">Currently Unavailable</div></body></html>`

	sp, err := New().Extract(page)
	require.NoError(t, err)
	assert.True(t, sp.IsOutOfStock)
	assert.Equal(t, 1099.0, sp.CurrentPrice)
}

func TestExtract_MissingEssentialFields(t *testing.T) {
	_, err := New().Extract(`<html><body><div class="_30jeq3">₹499</div></body></html>`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, extract.ErrMissingEssential))

	var extractErr *extract.Error
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, models.PlatformFlipkart, extractErr.Platform)
	assert.Equal(t, []string{"title"}, extractErr.Missing)
}
