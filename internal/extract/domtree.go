package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reviewking/agent/internal/models"
	"reviewking/agent/internal/page"
)

// Candidate selectors for AliExpress review nodes, most specific first. The
// list is data: when a host layout changes, add a selector, not a branch.
var aliReviewSelectors = []string{
	".list--itemWrap--ARYTMbR",
	`[class*="list"][class*="itemWrap"]`,
	`[data-pl="product-customer-reviews"] [class*="review"]`,
	`div[class*="review-item"]`,
}

// A selector match only counts when it lands in the plausible range for a
// single review page; hundreds of hits means it matched unrelated nodes.
const (
	minPlausibleMatches = 1
	maxPlausibleMatches = 99
)

var (
	wordDatePattern = regexp.MustCompile(`\d{1,2}\s+\w+\s+\d{4}`)
	isoDatePattern  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	firstDigit      = regexp.MustCompile(`\d`)
)

// fromAliExpressTree is the content-tree fallback strategy: ordered selector
// candidates, then a heuristic last-resort scan over generic containers.
func fromAliExpressTree(d *page.Document) []models.Review {
	var nodes []*goquery.Selection
	for _, selector := range aliReviewSelectors {
		sel := d.Find(selector)
		if sel.Length() >= minPlausibleMatches && sel.Length() <= maxPlausibleMatches {
			sel.Each(func(_ int, s *goquery.Selection) {
				nodes = append(nodes, s)
			})
			break
		}
	}
	if len(nodes) == 0 {
		nodes = heuristicReviewNodes(d)
	}

	reviews := make([]models.Review, 0, len(nodes))
	for i, node := range nodes {
		if r, ok := reviewFromNode(node, i); ok {
			reviews = append(reviews, r)
		}
	}
	return reviews
}

// heuristicReviewNodes scans for containers that look like reviews: a
// rating-like descendant, a date-like substring, and plausible text length.
func heuristicReviewNodes(d *page.Document) []*goquery.Selection {
	var nodes []*goquery.Selection
	d.Find("div").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if len(text) <= 50 || len(text) >= 2000 {
			return
		}
		if s.Find(`[class*="star"], [class*="rating"]`).Length() == 0 {
			return
		}
		if !wordDatePattern.MatchString(text) && !isoDatePattern.MatchString(text) {
			return
		}
		nodes = append(nodes, s)
	})
	return nodes
}

// reviewFromNode derives one canonical Review from a matched content node.
func reviewFromNode(node *goquery.Selection, index int) (models.Review, bool) {
	infoText := strings.TrimSpace(node.Find(`.list--itemInfo--URmp38d, [class*="itemInfo"]`).First().Text())
	name := "Customer"
	dateText := ""
	if infoText != "" {
		parts := strings.Split(infoText, "|")
		if v := strings.TrimSpace(parts[0]); v != "" {
			name = v
		}
		if len(parts) > 1 {
			dateText = strings.TrimSpace(parts[1])
		}
	}

	text := strings.TrimSpace(node.Find(`.list--itemReview--xQUhO78, [class*="itemReview"]`).First().Text())
	if len(text) <= 10 {
		return models.Review{}, false
	}

	// Rating comes from counting filled star markers; a node with no marker
	// at all is displayed as five stars by the host page.
	rating := 5.0
	if stars := node.Find(`[class*="starreviewfilled"]`).Length(); stars > 0 {
		rating = float64(stars)
	}

	return models.Review{
		ID:           fmt.Sprintf("dom_%d", index),
		ReviewerName: name,
		Text:         truncate(text, maxReviewTextLen),
		Rating:       rating,
		Date:         normalizeDate(dateText),
		Country:      "Unknown",
		Verified:     true,
		Images:       nodeImages(node),
		Platform:     models.PlatformAliExpress,
	}, true
}

// nodeImages collects customer photos under a review node, excluding
// anything nested in an avatar block.
func nodeImages(node *goquery.Selection) []string {
	var images []string
	node.Find("img").Each(func(_ int, img *goquery.Selection) {
		if img.ParentsFiltered(`[class*="itemPhoto"]`).Length() > 0 {
			return
		}
		src := img.AttrOr("src", "")
		if src == "" {
			src = img.AttrOr("data-src", "")
		}
		if len(src) > 50 && isReviewPhoto(src) {
			images = append(images, src)
		}
	})
	return images
}

// fromAmazonTree extracts reviews from Amazon's data-hook annotated markup.
func fromAmazonTree(d *page.Document) []models.Review {
	var reviews []models.Review
	d.Find(`[data-hook="review"]`).Each(func(i int, node *goquery.Selection) {
		text := strings.TrimSpace(node.Find(`[data-hook="review-body"]`).Text())
		if text == "" {
			return
		}
		name := strings.TrimSpace(node.Find(`[class*="author"]`).First().Text())
		if name == "" {
			name = "Amazon Customer"
		}
		rating := 5.0
		if m := firstDigit.FindString(node.Find(`[data-hook="review-star-rating"]`).Text()); m != "" {
			rating = float64(m[0] - '0')
		}
		var images []string
		node.Find(`img[data-hook="review-image"]`).Each(func(_ int, img *goquery.Selection) {
			if src := img.AttrOr("src", ""); src != "" {
				images = append(images, src)
			}
		})
		reviews = append(reviews, models.Review{
			ID:           fmt.Sprintf("amz_%d", i),
			ReviewerName: name,
			Text:         truncate(text, maxReviewTextLen),
			Rating:       rating,
			Date:         normalizeDate(""),
			Country:      "US",
			Verified:     node.Find(`[data-hook="avp-badge"]`).Length() > 0,
			Images:       images,
			Platform:     models.PlatformAmazon,
		})
	})
	return reviews
}
