package extract

import (
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

func aliContext() models.ProductContext {
	return models.ProductContext{
		Platform:  models.PlatformAliExpress,
		ProductID: "1005001234567890",
		SourceURL: "https://www.aliexpress.com/item/1005001234567890.html",
	}
}

func TestStructuredExtraction(t *testing.T) {
	html := `<html><body><script>
window.runParams = {"data":{"feedbackModule":{"feedbackList":[
  {"evaluationId":98765,"buyerName":"Ana P","buyerFeedback":"Great quality, arrived fast","buyerEval":100,"evalTime":"2024-03-05","buyerCountry":"BR",
   "images":["https://ae01.alicdn.com/kf/photo1.jpg","https://ae01.alicdn.com/kf/avatar_small.jpg","https://cdn.example.com/elsewhere.jpg"]},
  {"buyerFeedback":"ok","images":[{"imgUrl":"https://ae-pic-a1.aliexpress-media.com/kf/photo2.jpg"}]}
]}}};
</script></body></html>`
	d := mustParse(t, aliContext().SourceURL, html)

	reviews := Reviews(d, aliContext())
	if len(reviews) != 2 {
		t.Fatalf("got %d reviews, want 2", len(reviews))
	}

	first := reviews[0]
	if first.ID != "98765" {
		t.Errorf("ID = %q, want evaluation id", first.ID)
	}
	if first.ReviewerName != "Ana P" || first.Country != "BR" {
		t.Errorf("name/country = %q/%q", first.ReviewerName, first.Country)
	}
	if first.Rating != 100 {
		t.Errorf("Rating = %v, want raw 100", first.Rating)
	}
	if first.Date != "2024-03-05" {
		t.Errorf("Date = %q", first.Date)
	}
	// Avatar and off-CDN entries must be dropped.
	if len(first.Images) != 1 || first.Images[0] != "https://ae01.alicdn.com/kf/photo1.jpg" {
		t.Errorf("Images = %v", first.Images)
	}
	if !first.Verified {
		t.Error("structured reviews default to verified")
	}

	second := reviews[1]
	if second.ID != "rp_1" {
		t.Errorf("fallback ID = %q", second.ID)
	}
	if second.ReviewerName != "Anonymous" || second.Country != "Unknown" {
		t.Errorf("defaults = %q/%q", second.ReviewerName, second.Country)
	}
	if second.Rating != 5 {
		t.Errorf("default rating = %v, want 5", second.Rating)
	}
	if len(second.Images) != 1 {
		t.Errorf("object-form image entry lost: %v", second.Images)
	}
}

func TestStructuredTextTruncation(t *testing.T) {
	long := strings.Repeat("x", 600)
	html := `<html><body><script>
window.runParams = {"data":{"feedbackModule":{"feedbackList":[
  {"buyerFeedback":"` + long + `","buyerEval":80}
]}}};
</script></body></html>`
	d := mustParse(t, aliContext().SourceURL, html)
	reviews := Reviews(d, aliContext())
	if len(reviews) != 1 {
		t.Fatalf("got %d reviews", len(reviews))
	}
	if got := len(reviews[0].Text); got != maxReviewTextLen {
		t.Fatalf("text length = %d, want %d", got, maxReviewTextLen)
	}
}

func TestTreeFallbackExtraction(t *testing.T) {
	html := `<html><body>
<div class="list--itemWrap--ARYTMbR">
  <div class="list--itemInfo--URmp38d">John D. | 12 Mar 2024</div>
  <span class="comet-icon-starreviewfilled"></span>
  <span class="comet-icon-starreviewfilled"></span>
  <span class="comet-icon-starreviewfilled"></span>
  <div class="list--itemReview--xQUhO78">This product exceeded all my expectations</div>
</div>
<div class="list--itemWrap--ARYTMbR">
  <div class="list--itemReview--xQUhO78">short</div>
</div>
</body></html>`
	d := mustParse(t, aliContext().SourceURL, html)

	reviews := Reviews(d, aliContext())
	if len(reviews) != 1 {
		t.Fatalf("got %d reviews, want 1 (short-text node dropped)", len(reviews))
	}
	r := reviews[0]
	if r.ReviewerName != "John D." {
		t.Errorf("name = %q", r.ReviewerName)
	}
	if r.Date != "2024-03-12" {
		t.Errorf("date = %q", r.Date)
	}
	if r.Rating != 3 {
		t.Errorf("rating = %v, want star count 3", r.Rating)
	}
	if r.ID != "dom_0" {
		t.Errorf("id = %q", r.ID)
	}
}

func TestTreeFallbackDefaultRating(t *testing.T) {
	html := `<html><body>
<div class="list--itemWrap--ARYTMbR">
  <div class="list--itemReview--xQUhO78">No star markers rendered on this one at all</div>
</div>
</body></html>`
	d := mustParse(t, aliContext().SourceURL, html)
	reviews := Reviews(d, aliContext())
	if len(reviews) != 1 {
		t.Fatalf("got %d reviews", len(reviews))
	}
	if reviews[0].Rating != 5 {
		t.Fatalf("rating = %v, want default 5", reviews[0].Rating)
	}
	if reviews[0].ReviewerName != "Customer" {
		t.Fatalf("name = %q, want default", reviews[0].ReviewerName)
	}
}

func TestAmazonExtraction(t *testing.T) {
	html := `<html><body>
<div data-hook="review">
  <span class="a-profile-author">Jane R</span>
  <i data-hook="review-star-rating"><span>4.0 out of 5 stars</span></i>
  <span data-hook="review-body">Solid build, does what it says on the tin</span>
  <span data-hook="avp-badge">Verified Purchase</span>
  <img data-hook="review-image" src="https://m.media-amazon.com/images/I/photo.jpg">
</div>
<div data-hook="review">
  <span data-hook="review-body"></span>
</div>
</body></html>`
	pc := models.ProductContext{Platform: models.PlatformAmazon, ProductID: "B08N5WRWNW"}
	d := mustParse(t, "https://www.amazon.com/dp/B08N5WRWNW", html)

	reviews := Reviews(d, pc)
	if len(reviews) != 1 {
		t.Fatalf("got %d reviews, want 1 (empty body dropped)", len(reviews))
	}
	r := reviews[0]
	if r.ReviewerName != "Jane R" {
		t.Errorf("name = %q", r.ReviewerName)
	}
	if r.Rating != 4 {
		t.Errorf("rating = %v, want 4", r.Rating)
	}
	if !r.Verified {
		t.Error("verified badge not picked up")
	}
	if len(r.Images) != 1 {
		t.Errorf("images = %v", r.Images)
	}
	if r.Platform != models.PlatformAmazon {
		t.Errorf("platform = %s", r.Platform)
	}
}

func TestUnknownPlatformExtractsNothing(t *testing.T) {
	d := mustParse(t, "https://example.com/p/1", "<html></html>")
	pc := models.ProductContext{Platform: models.PlatformUnknown}
	if got := Reviews(d, pc); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2024-03-05":  "2024-03-05",
		"5 Mar 2024":  "2024-03-05",
		"Mar 5, 2024": "2024-03-05",
		"05 Mar 2024": "2024-03-05",
	}
	for in, want := range cases {
		if got := normalizeDate(in); got != want {
			t.Errorf("normalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
	// Unparseable input falls back to today, still in canonical form.
	if got := normalizeDate("yesterday"); len(got) != 10 || got[4] != '-' {
		t.Errorf("fallback date %q is not canonical", got)
	}
}
