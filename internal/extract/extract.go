// Package extract pulls raw review records out of a host-page snapshot and
// normalizes them into the canonical Review shape. Extraction is advisory:
// the authoritative review set is always the backend's, and failure here is
// never fatal.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"reviewking/agent/internal/models"
	"reviewking/agent/internal/page"
)

const maxReviewTextLen = 500

// Reviews runs the platform's extraction strategies in order and returns the
// first non-empty result. Strategy one reads the structured embedded data
// object; strategy two traverses the rendered content tree.
func Reviews(d *page.Document, pc models.ProductContext) []models.Review {
	switch pc.Platform {
	case models.PlatformAliExpress:
		if reviews := fromFeedbackModule(d); len(reviews) > 0 {
			return reviews
		}
		return fromAliExpressTree(d)
	case models.PlatformAmazon:
		return fromAmazonTree(d)
	default:
		return nil
	}
}

// feedbackRecord is one raw entry of the embedded feedback list. Numeric
// fields arrive as either JSON numbers or strings depending on page version.
type feedbackRecord struct {
	EvaluationID  json.Number       `json:"evaluationId"`
	BuyerName     string            `json:"buyerName"`
	BuyerFeedback string            `json:"buyerFeedback"`
	BuyerEval     json.Number       `json:"buyerEval"`
	EvalTime      string            `json:"evalTime"`
	BuyerCountry  string            `json:"buyerCountry"`
	Images        []json.RawMessage `json:"images"`
}

// fromFeedbackModule is the structured-source strategy: the feedback list
// embedded in the page's global data object.
func fromFeedbackModule(d *page.Document) []models.Review {
	raw, ok := d.EmbeddedPath("data", "feedbackModule", "feedbackList")
	if !ok {
		raw, ok = d.EmbeddedPath("data", "productDetailReviewSummary", "feedbackList")
	}
	if !ok {
		return nil
	}

	var records []feedbackRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil
	}

	reviews := make([]models.Review, 0, len(records))
	for i, rec := range records {
		id := rec.EvaluationID.String()
		if id == "" || id == "0" {
			id = fmt.Sprintf("rp_%d", i)
		}
		name := rec.BuyerName
		if name == "" {
			name = "Anonymous"
		}
		rating, err := rec.BuyerEval.Float64()
		if err != nil || rating <= 0 {
			rating = 5
		}
		country := rec.BuyerCountry
		if country == "" {
			country = "Unknown"
		}
		reviews = append(reviews, models.Review{
			ID:           id,
			ReviewerName: name,
			Text:         truncate(rec.BuyerFeedback, maxReviewTextLen),
			Rating:       rating,
			Date:         normalizeDate(rec.EvalTime),
			Country:      country,
			Verified:     true,
			Images:       photoURLs(rec.Images),
			Platform:     models.PlatformAliExpress,
		})
	}
	return reviews
}

// photoURLs flattens the mixed string/object image entries and drops
// anything that is not a customer photo hosted on the review CDN.
func photoURLs(entries []json.RawMessage) []string {
	urls := make([]string, 0, len(entries))
	for _, entry := range entries {
		var u string
		if err := json.Unmarshal(entry, &u); err != nil {
			var obj struct {
				ImgURL string `json:"imgUrl"`
				URL    string `json:"url"`
				Src    string `json:"src"`
			}
			if err := json.Unmarshal(entry, &obj); err != nil {
				continue
			}
			u = firstNonEmpty(obj.ImgURL, obj.URL, obj.Src)
		}
		if isReviewPhoto(u) {
			urls = append(urls, u)
		}
	}
	return urls
}

// isReviewPhoto applies the substring heuristics that keep avatars, icons,
// and placeholders out of the image list.
func isReviewPhoto(u string) bool {
	if u == "" {
		return false
	}
	hosted := strings.Contains(u, "/kf/") ||
		strings.Contains(u, "ae-pic") ||
		strings.Contains(u, "ae01.alicdn")
	if !hosted {
		return false
	}
	for _, junk := range []string{"avatar", "icon", "placeholder", "logo"} {
		if strings.Contains(u, junk) {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
	time.RFC3339,
}

// normalizeDate coerces the assorted host-page date spellings onto
// YYYY-MM-DD, defaulting to today when nothing parses.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return time.Now().Format("2006-01-02")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
