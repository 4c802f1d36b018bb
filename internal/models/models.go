package models

import "math"

// Platform identifies the host marketplace a review was scraped from.
type Platform string

const (
	PlatformAliExpress Platform = "aliexpress"
	PlatformAmazon     Platform = "amazon"
	PlatformEbay       Platform = "ebay"
	PlatformWalmart    Platform = "walmart"
	PlatformUnknown    Platform = "unknown"
)

// Review is the canonical review record produced by the extraction pipeline
// and returned by the backend. It is immutable once constructed; filter and
// sort state live outside it.
//
// Rating carries one of two scales: the native platform 0-100 score, or an
// already-normalized 1-5 star value. Both coexist in the same collection;
// use StarRating wherever star buckets matter.
type Review struct {
	ID             string   `json:"id"`
	ReviewerName   string   `json:"reviewer_name"`
	Text           string   `json:"text"`
	Translation    string   `json:"translation,omitempty"`
	Rating         float64  `json:"rating"`
	Date           string   `json:"date"`
	Country        string   `json:"country"`
	Verified       bool     `json:"verified"`
	Images         []string `json:"images"`
	Platform       Platform `json:"platform"`
	AIRecommended  bool     `json:"ai_recommended"`
	QualityScore   float64  `json:"quality_score"`
	SentimentScore float64  `json:"sentiment_score"`
}

// HasPhotos reports whether the review carries at least one non-avatar image.
func (r Review) HasPhotos() bool {
	return len(r.Images) > 0
}

// StarRating maps the dual-scale rating field onto 1-5 stars. Values above 5
// are the platform-native 0-100 scale and convert via ceil(r/100*5); values
// at or below 5 are already star values. The ceil rounding decides which
// reviews land in which bucket, so it must not change.
func StarRating(r float64) int {
	if r > 5 {
		return int(math.Ceil(r / 100 * 5))
	}
	return int(math.Round(r))
}

// ProductContext identifies the product the agent is looking at. It is
// created once per page load (or per in-page product click in modal mode)
// and replaced wholesale, never partially mutated.
type ProductContext struct {
	Platform  Platform `json:"platform"`
	ProductID string   `json:"product_id"`
	SourceURL string   `json:"source_url"`
}

// SelectedTarget is the destination-catalog product chosen to receive
// imported reviews. At most one is selected at a time.
type SelectedTarget struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Image string `json:"image,omitempty"`
}

// Pagination is the forward-only pager reported by the backend.
type Pagination struct {
	Page    int  `json:"page"`
	HasNext bool `json:"has_next"`
}

// Stats summarizes the unfiltered review set of the current page.
type Stats struct {
	Total          int     `json:"total"`
	WithPhotos     int     `json:"with_photos"`
	AIRecommended  int     `json:"ai_recommended"`
	FourFiveStar   int     `json:"reviews_45star"`
	ThreeStar      int     `json:"reviews_3star"`
	AverageQuality float64 `json:"average_quality"`
	AverageRating  float64 `json:"average_rating"`
}

// CountryCount is one entry of the per-country review breakdown.
type CountryCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// SessionState is the whole mutable state of one agent session. AllReviews
// always reflects only the most recently fetched page; CurrentIndex indexes
// the filtered view and resets to 0 whenever filter, country, or page
// changes.
type SessionState struct {
	SessionID        string          `json:"session_id"`
	Product          ProductContext  `json:"product"`
	Target           *SelectedTarget `json:"target,omitempty"`
	AllReviews       []Review        `json:"all_reviews"`
	Pagination       Pagination      `json:"pagination"`
	Stats            Stats           `json:"stats"`
	CurrentFilter    string          `json:"current_filter"`
	SelectedCountry  string          `json:"selected_country"`
	CurrentIndex     int             `json:"current_index"`
	ShowTranslations bool            `json:"show_translations"`
	SmartSorted      bool            `json:"smart_sorted"`
}

// rawStats tolerates the two field spellings the backend has shipped.
type rawStats struct {
	AverageQuality *float64 `json:"average_quality"`
	AvgQuality     *float64 `json:"avg_quality"`
	AverageRating  *float64 `json:"average_rating"`
	AvgRating      *float64 `json:"avg_rating"`
}

// FetchResponse is the body of GET /reviews/import/url.
type FetchResponse struct {
	Success    bool       `json:"success"`
	Reviews    []Review   `json:"reviews"`
	Pagination Pagination `json:"pagination"`
	Stats      rawStats   `json:"stats"`
	SessionID  string     `json:"session_id,omitempty"`
	Error      string     `json:"error,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// AverageQuality returns the server average quality under either spelling.
func (f *FetchResponse) AverageQuality() float64 {
	if f.Stats.AverageQuality != nil {
		return *f.Stats.AverageQuality
	}
	if f.Stats.AvgQuality != nil {
		return *f.Stats.AvgQuality
	}
	return 0
}

// AverageRating returns the server average rating under either spelling.
func (f *FetchResponse) AverageRating() float64 {
	if f.Stats.AverageRating != nil {
		return *f.Stats.AverageRating
	}
	if f.Stats.AvgRating != nil {
		return *f.Stats.AvgRating
	}
	return 0
}

// CatalogProduct is one destination-catalog search hit.
type CatalogProduct struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Image string `json:"image,omitempty"`
}

// SearchResponse is the body of GET /products/search.
type SearchResponse struct {
	Success  bool             `json:"success"`
	Products []CatalogProduct `json:"products"`
	Error    string           `json:"error,omitempty"`
}

// SingleImportRequest is the body of POST /reviews/import/single.
type SingleImportRequest struct {
	Review          Review `json:"review"`
	TargetProductID string `json:"targetProductId"`
	SessionID       string `json:"sessionId"`
}

// SingleImportResponse reports the outcome of a single import. Duplicate
// means the review was already imported for this target product.
type SingleImportResponse struct {
	Success        bool    `json:"success"`
	Duplicate      bool    `json:"duplicate,omitempty"`
	ReviewID       string  `json:"reviewId,omitempty"`
	ImportedReview *Review `json:"importedReview,omitempty"`
	Error          string  `json:"error,omitempty"`
	Message        string  `json:"message,omitempty"`
}

// SkipRequest is the body of POST /reviews/skip.
type SkipRequest struct {
	ReviewID  string `json:"reviewId"`
	SessionID string `json:"sessionId"`
}

// SkipResponse is the body returned by POST /reviews/skip.
type SkipResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkImportRequest is the body of POST /reviews/import/bulk. The reviews
// slice carries the whole selected subset in one batched request.
type BulkImportRequest struct {
	Reviews         []Review           `json:"reviews"`
	TargetProductID string             `json:"targetProductId"`
	SessionID       string             `json:"sessionId"`
	Platform        Platform           `json:"platform"`
	Filters         map[string]float64 `json:"filters,omitempty"`
}

// BulkImportResponse carries the aggregate outcome counts of a bulk import.
type BulkImportResponse struct {
	Success        bool   `json:"success"`
	ImportedCount  int    `json:"imported_count"`
	FailedCount    int    `json:"failed_count"`
	SkippedCount   int    `json:"skipped_count"`
	DuplicateCount int    `json:"duplicate_count,omitempty"`
	Error          string `json:"error,omitempty"`
}
