// Package rank filters and orders a page of reviews for triage. The
// comparator is deterministic and stable so the same inputs always produce
// the same view.
package rank

import (
	"sort"
	"strings"

	"reviewking/agent/internal/models"
)

// Filter names one of the category predicates applied before sorting.
type Filter string

const (
	FilterAll           Filter = "all"
	FilterPhotos        Filter = "photos"
	FilterAIRecommended Filter = "ai_recommended"
	FilterFourFiveStars Filter = "4-5stars"
	FilterThreeStars    Filter = "3stars"
	FilterFiveStars     Filter = "5stars"
)

// CountryAll disables the country stage.
const CountryAll = "all"

// Reviews with fewer AI recommendations than this fall back to the full set
// with smart sorting.
const minAIRecommended = 3

// minMeaningfulText is the trimmed length at which review text counts as
// real content for ranking purposes.
const minMeaningfulText = 10

// View is the ordered collection actually shown. SmartSorted flags that the
// requested ai_recommended filter was too sparse and the engine substituted
// the full set.
type View struct {
	Reviews     []models.Review
	SmartSorted bool
}

// Rating-bucket boundaries, expressed on the native 0-100 scale.
const (
	fiveStarFloor     = 90
	fourFiveStarFloor = 70
	threeStarFloor    = 50
)

func predicate(f Filter) func(models.Review) bool {
	switch f {
	case FilterPhotos:
		return models.Review.HasPhotos
	case FilterAIRecommended:
		return func(r models.Review) bool { return r.AIRecommended }
	case FilterFourFiveStars:
		return func(r models.Review) bool { return r.Rating >= fourFiveStarFloor }
	case FilterThreeStars:
		return func(r models.Review) bool { return r.Rating >= threeStarFloor && r.Rating < fourFiveStarFloor }
	case FilterFiveStars:
		return func(r models.Review) bool { return r.Rating >= fiveStarFloor }
	default:
		return func(models.Review) bool { return true }
	}
}

// Apply runs the three stages: category filter, country filter, and the
// deterministic multi-key sort. When the ai_recommended category matches
// fewer than three reviews the engine silently substitutes "all" and marks
// the view smart-sorted.
func Apply(all []models.Review, f Filter, country string) View {
	smartSorted := false
	if f == FilterAIRecommended {
		matches := 0
		for _, r := range all {
			if r.AIRecommended {
				matches++
			}
		}
		if matches < minAIRecommended {
			f = FilterAll
			smartSorted = true
		}
	}

	keep := predicate(f)
	filtered := make([]models.Review, 0, len(all))
	for _, r := range all {
		if !keep(r) {
			continue
		}
		if country != CountryAll && country != "" && r.Country != country {
			continue
		}
		filtered = append(filtered, r)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return Less(filtered[i], filtered[j])
	})

	return View{Reviews: filtered, SmartSorted: smartSorted}
}

// Less is the ranking comparator. Priority, highest first: AI-recommended,
// meaningful text, photos (then photo count), raw rating, text length,
// quality score. Equal keys keep their incoming order (stable sort).
func Less(a, b models.Review) bool {
	if a.AIRecommended != b.AIRecommended {
		return a.AIRecommended
	}

	aText := strings.TrimSpace(a.Text)
	bText := strings.TrimSpace(b.Text)
	aHasText := len(aText) >= minMeaningfulText
	bHasText := len(bText) >= minMeaningfulText
	if aHasText != bHasText {
		return aHasText
	}

	aPhotos := len(a.Images)
	bPhotos := len(b.Images)
	if (aPhotos > 0) != (bPhotos > 0) {
		return aPhotos > 0
	}
	if aPhotos != bPhotos {
		return aPhotos > bPhotos
	}

	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	if len(aText) != len(bText) {
		return len(aText) > len(bText)
	}
	return a.QualityScore > b.QualityScore
}

// Summarize computes the headline counts over the UNFILTERED review set;
// the current view never influences the stats.
func Summarize(all []models.Review) models.Stats {
	stats := models.Stats{Total: len(all)}
	for _, r := range all {
		if r.HasPhotos() {
			stats.WithPhotos++
		}
		if r.AIRecommended {
			stats.AIRecommended++
		}
		switch models.StarRating(r.Rating) {
		case 4, 5:
			stats.FourFiveStar++
		case 3:
			stats.ThreeStar++
		}
	}
	return stats
}

// CountryCounts returns the distinct countries present in the set with their
// review counts, most reviews first. Codes tie-break alphabetically so the
// order is deterministic.
func CountryCounts(all []models.Review) []models.CountryCount {
	counts := map[string]int{}
	for _, r := range all {
		if r.Country != "" {
			counts[r.Country]++
		}
	}
	out := make([]models.CountryCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, models.CountryCount{Code: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	return out
}
