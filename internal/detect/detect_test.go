package detect

import (
	"errors"
	"strings"
	"testing"

	"reviewking/agent/internal/models"
	"reviewking/agent/internal/page"
)

func mustParse(t *testing.T, rawURL, html string) *page.Document {
	t.Helper()
	d, err := page.Parse(rawURL, strings.NewReader(html))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d
}

func TestMode(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://www.aliexpress.com/item/1005001234567890.html", false},
		{"https://www.aliexpress.com/ssr/300000512/BundleDeals", true},
		{"https://m.aliexpress.com/p/trade?_immersiveMode=true", true},
		{"https://m.aliexpress.com/p/trade?disableNav=YES", true},
		// A direct item page wins even with modal-style flags on it.
		{"https://www.aliexpress.com/item/1005001234567890.html?_immersiveMode=true", false},
		{"https://www.aliexpress.com/w/wholesale-socks.html", false},
	}
	for _, c := range cases {
		if got := Mode(c.url); got != c.want {
			t.Errorf("Mode(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestProductFromURL(t *testing.T) {
	cases := []struct {
		url      string
		platform models.Platform
		id       string
	}{
		{"https://www.aliexpress.com/item/1005007654321098.html", models.PlatformAliExpress, "1005007654321098"},
		{"https://www.amazon.com/gp-widget/dp/B08N5WRWNW?th=1", models.PlatformAmazon, "B08N5WRWNW"},
		{"https://www.ebay.com/itm/334455667788", models.PlatformEbay, "334455667788"},
		{"https://www.walmart.com/ip/some-product-name/987654321", models.PlatformWalmart, "987654321"},
	}
	for _, c := range cases {
		d := mustParse(t, c.url, "<html></html>")
		pc, err := Product(d)
		if err != nil {
			t.Fatalf("Product(%q): %v", c.url, err)
		}
		if pc.Platform != c.platform || pc.ProductID != c.id {
			t.Errorf("Product(%q) = %s/%s, want %s/%s", c.url, pc.Platform, pc.ProductID, c.platform, c.id)
		}
		if pc.SourceURL != c.url {
			t.Errorf("SourceURL = %q, want %q", pc.SourceURL, c.url)
		}
	}
}

func TestProductFromEmbeddedData(t *testing.T) {
	html := `<html><body><script>
window.runParams = {"data":{"feedbackModule":{"productId":"1005009998887776"}}};
</script></body></html>`
	d := mustParse(t, "https://www.aliexpress.com/p/wholesale/index.html", html)
	pc, err := Product(d)
	if err != nil {
		t.Fatalf("Product: %v", err)
	}
	if pc.ProductID != "1005009998887776" {
		t.Fatalf("ProductID = %q", pc.ProductID)
	}
}

func TestProductFromMetaTag(t *testing.T) {
	html := `<html><head><meta property="product:id" content="1005003332221110"></head></html>`
	d := mustParse(t, "https://www.aliexpress.com/p/wholesale/index.html", html)
	pc, err := Product(d)
	if err != nil {
		t.Fatalf("Product: %v", err)
	}
	if pc.ProductID != "1005003332221110" {
		t.Fatalf("ProductID = %q", pc.ProductID)
	}
}

func TestProductNotFoundIsFatal(t *testing.T) {
	d := mustParse(t, "https://www.aliexpress.com/p/wholesale/index.html", "<html></html>")
	pc, err := Product(d)
	if !errors.Is(err, ErrNoProduct) {
		t.Fatalf("err = %v, want ErrNoProduct", err)
	}
	if pc.Platform != models.PlatformAliExpress {
		t.Fatalf("platform = %s, want aliexpress even on failure", pc.Platform)
	}

	d = mustParse(t, "https://example.com/whatever", "<html></html>")
	pc, err = Product(d)
	if !errors.Is(err, ErrNoProduct) {
		t.Fatalf("err = %v, want ErrNoProduct", err)
	}
	if pc.Platform != models.PlatformUnknown {
		t.Fatalf("platform = %s, want unknown", pc.Platform)
	}
}

func TestPlatformFor(t *testing.T) {
	cases := map[string]models.Platform{
		"www.aliexpress.com": models.PlatformAliExpress,
		"best.aliexpress.us": models.PlatformAliExpress,
		"www.amazon.co.uk":   models.PlatformAmazon,
		"www.ebay.de":        models.PlatformEbay,
		"www.walmart.com":    models.PlatformWalmart,
		"shop.example.com":   models.PlatformUnknown,
	}
	for host, want := range cases {
		if got := PlatformFor(host); got != want {
			t.Errorf("PlatformFor(%q) = %s, want %s", host, got, want)
		}
	}
}
