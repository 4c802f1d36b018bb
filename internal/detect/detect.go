// Package detect identifies the hosting platform, the product being viewed,
// and whether the page is an embedded/modal surface rather than a direct
// product page.
package detect

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"reviewking/agent/internal/models"
	"reviewking/agent/internal/page"
)

// ErrNoProduct means no product identifier could be resolved on a direct
// product page. The agent cannot proceed; this is fatal and not retried.
var ErrNoProduct = errors.New("no product detected on this page")

var directItemPage = regexp.MustCompile(`/item/\d{13,}\.html`)

// Mode reports whether the page is in embedded/modal mode. A direct product
// page URL (item path with a long numeric id and page suffix) overrides any
// modal-indicating query flags.
func Mode(rawURL string) bool {
	if strings.Contains(rawURL, "/item/") && directItemPage.MatchString(rawURL) {
		return false
	}
	return strings.Contains(rawURL, "_immersiveMode=true") ||
		strings.Contains(rawURL, "disableNav=YES") ||
		strings.Contains(rawURL, "/ssr/")
}

// resolver attempts one strategy for pulling a product id out of the page.
// Resolvers for a platform are tried in order; the chain stops at the first
// success.
type resolver func(d *page.Document) (string, bool)

type platformRule struct {
	hostKeyword string
	platform    models.Platform
	chain       []resolver
}

// Platform rules are data, not control flow: new host layouts get a new
// resolver in the right chain.
var platformRules = []platformRule{
	{
		hostKeyword: "aliexpress",
		platform:    models.PlatformAliExpress,
		chain: []resolver{
			urlPattern(regexp.MustCompile(`/item/(\d+)(?:\.html)?`)),
			embeddedKey("data", "feedbackModule", "productId"),
			embeddedKey("data", "productId"),
			embeddedKey("data", "storeModule", "productId"),
			metaKey("product:id"),
		},
	},
	{
		hostKeyword: "amazon",
		platform:    models.PlatformAmazon,
		chain: []resolver{
			urlPattern(regexp.MustCompile(`/dp/([A-Z0-9]{10})`)),
		},
	},
	{
		hostKeyword: "ebay",
		platform:    models.PlatformEbay,
		chain: []resolver{
			urlPattern(regexp.MustCompile(`/itm/(\d+)`)),
		},
	},
	{
		hostKeyword: "walmart",
		platform:    models.PlatformWalmart,
		chain: []resolver{
			urlPattern(regexp.MustCompile(`/ip/[^/]+/(\d+)`)),
		},
	},
}

// Product resolves the platform and product identifier for the page.
func Product(d *page.Document) (models.ProductContext, error) {
	host := d.Hostname()
	for _, rule := range platformRules {
		if !strings.Contains(host, rule.hostKeyword) {
			continue
		}
		for _, resolve := range rule.chain {
			if id, ok := resolve(d); ok {
				return models.ProductContext{
					Platform:  rule.platform,
					ProductID: id,
					SourceURL: d.URL(),
				}, nil
			}
		}
		return models.ProductContext{Platform: rule.platform, SourceURL: d.URL()}, ErrNoProduct
	}
	return models.ProductContext{Platform: models.PlatformUnknown, SourceURL: d.URL()}, ErrNoProduct
}

// PlatformFor maps a hostname onto the platform enum without resolving a
// product (used by the extraction pipeline's strategy dispatch).
func PlatformFor(hostname string) models.Platform {
	for _, rule := range platformRules {
		if strings.Contains(hostname, rule.hostKeyword) {
			return rule.platform
		}
	}
	return models.PlatformUnknown
}

func urlPattern(re *regexp.Regexp) resolver {
	return func(d *page.Document) (string, bool) {
		u, err := url.Parse(d.URL())
		if err != nil {
			return "", false
		}
		m := re.FindStringSubmatch(u.Path)
		if m == nil {
			// Some host layouts keep the item path in the query string.
			m = re.FindStringSubmatch(d.URL())
		}
		if m == nil {
			return "", false
		}
		return m[1], true
	}
}

func embeddedKey(keys ...string) resolver {
	return func(d *page.Document) (string, bool) {
		return d.EmbeddedString(keys...)
	}
}

func metaKey(key string) resolver {
	return func(d *page.Document) (string, bool) {
		return d.Meta(key)
	}
}
