package page

import (
	"strings"
	"testing"
)

const productPage = `<!DOCTYPE html>
<html>
<head>
<meta property="product:id" content="1005007771112223">
</head>
<body>
<script>
  var other = 1;
  window.runParams = {"data":{"productId":"1005001234567890","title":"Brace } in { string","feedbackModule":{"productId":1005001234567890}}};
</script>
</body>
</html>`

func mustParse(t *testing.T, rawURL, html string) *Document {
	t.Helper()
	d, err := Parse(rawURL, strings.NewReader(html))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d
}

func TestEmbeddedDataExtraction(t *testing.T) {
	d := mustParse(t, "https://www.aliexpress.com/item/1005001234567890.html", productPage)

	if _, ok := d.EmbeddedData(); !ok {
		t.Fatal("expected embedded data object")
	}

	id, ok := d.EmbeddedString("data", "productId")
	if !ok || id != "1005001234567890" {
		t.Fatalf("EmbeddedString(data.productId) = %q, %v", id, ok)
	}

	// Numeric leaves come back in string form too.
	id, ok = d.EmbeddedString("data", "feedbackModule", "productId")
	if !ok || id != "1005001234567890" {
		t.Fatalf("EmbeddedString(data.feedbackModule.productId) = %q, %v", id, ok)
	}

	// Braces inside string values must not break the object scan.
	title, ok := d.EmbeddedString("data", "title")
	if !ok || !strings.Contains(title, "}") {
		t.Fatalf("EmbeddedString(data.title) = %q, %v", title, ok)
	}
}

func TestEmbeddedDataMissing(t *testing.T) {
	d := mustParse(t, "https://www.aliexpress.com/item/1.html", `<html><body><script>var x=1;</script></body></html>`)
	if _, ok := d.EmbeddedData(); ok {
		t.Fatal("found embedded data on a page without runParams")
	}
	if _, ok := d.EmbeddedString("data", "productId"); ok {
		t.Fatal("EmbeddedString succeeded without embedded data")
	}
}

func TestMeta(t *testing.T) {
	d := mustParse(t, "https://www.aliexpress.com/item/1.html", productPage)
	v, ok := d.Meta("product:id")
	if !ok || v != "1005007771112223" {
		t.Fatalf("Meta(product:id) = %q, %v", v, ok)
	}
	if _, ok := d.Meta("og:nonexistent"); ok {
		t.Fatal("Meta returned content for missing key")
	}
}

func TestURLParts(t *testing.T) {
	d := mustParse(t, "https://best.aliexpress.com:443/item/1005001.html?x=1", "<html></html>")
	if d.Hostname() != "best.aliexpress.com" {
		t.Fatalf("Hostname = %q", d.Hostname())
	}
	if d.Path() != "/item/1005001.html" {
		t.Fatalf("Path = %q", d.Path())
	}
}

func TestBalancedObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{` {"a":1} trailing`, `{"a":1}`},
		{`{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{`{"a":"}"}`, `{"a":"}"}`},
		{`{"a":"\"}"}`, `{"a":"\"}"}`},
		{`{"a":1`, ""},
		{`no object here`, ""},
	}
	for _, c := range cases {
		if got := balancedObject(c.in); got != c.want {
			t.Errorf("balancedObject(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
