package amazon

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/pricepulse/internal/extract"
	"github.com/lukman83/pricepulse/internal/models"
)

const fullPage = `<!DOCTYPE html>
<html><head><title>Amazon.in</title>
<script type="text/javascript">
P.when('A').register("ImageBlockATF", function(A){
  var data = {
    'colorImages': { 'initial': [{"hiRes":"https:\/\/m.media-amazon.com\/images\/I\/71kettle_SL1500_.jpg","thumb":"https://m.media-amazon.com/images/I/41thumb.jpg","large":"https://m.media-amazon.com/images/I/41large.jpg"}]},
  };
});
</script>
</head>
<body>
<div id="wayfinding-breadcrumbs_feature_div"><ul>
  <li><a> Home &amp; Kitchen </a></li><li>›</li><li><a> Kettles </a></li>
</ul></div>
<span id="productTitle">
   Prestige PKOSS 1.5L Electric Kettle (Stainless Steel)
</span>
<span id="acrPopover" title="4.2 out of 5 stars"></span>
<span id="acrCustomerReviewText">48,129 ratings</span>
<div id="corePriceDisplay_desktop_feature_div">
  <span class="a-price priceToPay"><span class="a-offscreen">₹649.00</span>
    <span class="a-price-symbol">₹</span><span class="a-price-whole">649.</span></span>
  <span class="savingsPercentage">-57%</span>
  <span class="basisPrice">M.R.P.: <span class="a-price a-text-price"><span class="a-offscreen">₹1,495</span></span></span>
</div>
<div id="availability"><span> In stock </span></div>
<img id="landingImage" src="https://m.media-amazon.com/images/I/small.jpg"
     data-a-dynamic-image='{"https://m.media-amazon.com/images/I/a.jpg":[300,300],"https://m.media-amazon.com/images/I/b.jpg":[679,679]}'>
<div id="feature-bullets"><ul>
  <li><span class="a-list-item"> 1500 Watt heating element </span></li>
  <li><span class="a-list-item"> Auto shut-off </span></li>
</ul></div>
<div id="productDescription"><h3>Boil in minutes</h3><p>A kettle for every kitchen.</p></div>
<table id="productDetails_techSpec_section_1">
  <tr><th> Capacity </th><td> 1.5 litres </td></tr>
  <tr><th> Colour </th><td> Silver </td></tr>
</table>
</body></html>`

func TestExtract_FullPage(t *testing.T) {
	sp, err := New().Extract(fullPage)
	require.NoError(t, err)

	assert.Equal(t, models.PlatformAmazon, sp.Platform)
	assert.Equal(t, "Prestige PKOSS 1.5L Electric Kettle (Stainless Steel)", sp.Title)
	assert.Equal(t, 649.0, sp.CurrentPrice)
	assert.Equal(t, 1495.0, sp.OriginalPrice)
	assert.Equal(t, 57.0, sp.DiscountRate)
	assert.Equal(t, "₹", sp.Currency)
	assert.False(t, sp.IsOutOfStock)
	assert.Equal(t, 4.2, sp.Stars)
	assert.Equal(t, 48129, sp.ReviewsCount)
	assert.Equal(t, "Home & Kitchen > Kettles", sp.Category)

	// Inline script data wins over the DOM image.
	assert.Equal(t, "https://m.media-amazon.com/images/I/71kettle_SL1500_.jpg", sp.Image)

	assert.True(t, strings.HasPrefix(sp.Description, "Boil in minutes\n\nA kettle for every kitchen."))
	assert.Contains(t, sp.Description, "• 1500 Watt heating element\n• Auto shut-off")
	assert.Contains(t, sp.Description, "Capacity: 1.5 litres\nColour: Silver")
}

const minimalPage = `<html><body>
<h1 id="title"><span>Generic USB Cable</span></h1>
<span id="priceblock_ourprice">$9.99</span>
</body></html>`

func TestExtract_MissingOptionalFields(t *testing.T) {
	sp, err := New().Extract(minimalPage)
	require.NoError(t, err)

	assert.Equal(t, "Generic USB Cable", sp.Title)
	assert.Equal(t, 9.99, sp.CurrentPrice)
	assert.Equal(t, 9.99, sp.OriginalPrice)
	assert.Zero(t, sp.DiscountRate)
	assert.Zero(t, sp.Stars)
	assert.Zero(t, sp.ReviewsCount)
	assert.False(t, sp.IsOutOfStock)
	assert.Equal(t, "$", sp.Currency)
	assert.Equal(t, extract.DefaultDescription, sp.Description)
}

const centsPage = `<html><body>
<span id="productTitle">Anker USB-C Charger 20W</span>
<div id="corePriceDisplay_desktop_feature_div">
  <span class="a-price priceToPay"><span class="a-offscreen">$19.99</span>
    <span aria-hidden="true"><span class="a-price-symbol">$</span><span class="a-price-whole">19<span class="a-price-decimal">.</span></span><span class="a-price-fraction">99</span></span></span>
  <span class="basisPrice">List: <span class="a-price a-text-price"><span class="a-offscreen">$25.99</span></span></span>
</div>
</body></html>`

func TestExtract_KeepsCents(t *testing.T) {
	sp, err := New().Extract(centsPage)
	require.NoError(t, err)

	assert.Equal(t, 19.99, sp.CurrentPrice)
	assert.Equal(t, 25.99, sp.OriginalPrice)
	assert.Equal(t, 23.0, sp.DiscountRate)
	assert.Equal(t, "$", sp.Currency)
}

func TestExtract_WholeAndFractionWithoutOffscreen(t *testing.T) {
	page := `<html><body>
<span id="productTitle">Desk Lamp</span>
<span class="a-price priceToPay"><span class="a-price-symbol">$</span><span class="a-price-whole">1,249<span class="a-price-decimal">.</span></span><span class="a-price-fraction">50</span></span>
</body></html>`

	sp, err := New().Extract(page)
	require.NoError(t, err)
	assert.Equal(t, 1249.5, sp.CurrentPrice)
	assert.Equal(t, 1249.5, sp.OriginalPrice)
}

const outOfStockPage = `<html><body>
<span id="productTitle">Vintage Camera</span>
<span class="a-price a-text-price"><span class="a-offscreen">₹12,000</span></span>
<div id="availability"><span>Currently unavailable.</span></div>
<img id="landingImage" data-a-dynamic-image='{"https://img/a.jpg":[100,100],"https://img/b.jpg":[500,500]}'>
</body></html>`

func TestExtract_OutOfStockOnlyOriginalPrice(t *testing.T) {
	sp, err := New().Extract(outOfStockPage)
	require.NoError(t, err)

	assert.True(t, sp.IsOutOfStock)
	assert.Equal(t, 12000.0, sp.OriginalPrice)
	assert.Equal(t, 12000.0, sp.CurrentPrice)
	assert.Equal(t, "https://img/b.jpg", sp.Image)
}

const ldPage = `<html><head>
<script type="application/ld+json">{"@type":"Product","name":"LD Speaker","image":"https://img/ld.jpg",
 "offers":{"@type":"Offer","price":"2499","priceCurrency":"INR","availability":"https://schema.org/OutOfStock"},
 "aggregateRating":{"ratingValue":"3.9","reviewCount":"120"}}</script>
</head><body></body></html>`

func TestExtract_StructuredDataOnly(t *testing.T) {
	sp, err := New().Extract(ldPage)
	require.NoError(t, err)

	assert.Equal(t, "LD Speaker", sp.Title)
	assert.Equal(t, 2499.0, sp.CurrentPrice)
	assert.Equal(t, "₹", sp.Currency)
	assert.True(t, sp.IsOutOfStock)
	assert.Equal(t, 3.9, sp.Stars)
	assert.Equal(t, 120, sp.ReviewsCount)
	assert.Equal(t, "https://img/ld.jpg", sp.Image)
}

func TestExtract_MissingEssentialFields(t *testing.T) {
	pages := []string{
		`<html><body><div id="captcha">Type the characters you see</div></body></html>`,
		`<html><body><span id="priceblock_ourprice">$9.99</span></body></html>`,
		`<html><body><span id="productTitle">No price here</span><span id="priceblock_ourprice">see options</span></body></html>`,
	}
	for _, page := range pages {
		_, err := New().Extract(page)
		require.Error(t, err)
		assert.True(t, errors.Is(err, extract.ErrMissingEssential))
	}
}
