package agent

import (
	"context"
	"fmt"

	"reviewking/agent/internal/models"
)

// SubsetKind names a bulk import selection over the unfiltered review set.
type SubsetKind string

const (
	SubsetAll           SubsetKind = "all"
	SubsetWithPhotos    SubsetKind = "with_photos"
	SubsetWithoutPhotos SubsetKind = "without_photos"
	SubsetAIRecommended SubsetKind = "ai_recommended"
	SubsetFourFiveStars SubsetKind = "4-5stars"
	SubsetThreeStars    SubsetKind = "3stars"
)

func subsetOf(all []models.Review, kind SubsetKind) ([]models.Review, bool) {
	var keep func(models.Review) bool
	switch kind {
	case SubsetAll:
		keep = func(models.Review) bool { return true }
	case SubsetWithPhotos:
		keep = models.Review.HasPhotos
	case SubsetWithoutPhotos:
		keep = func(r models.Review) bool { return !r.HasPhotos() }
	case SubsetAIRecommended:
		keep = func(r models.Review) bool { return r.AIRecommended }
	case SubsetFourFiveStars:
		keep = func(r models.Review) bool {
			s := models.StarRating(r.Rating)
			return s == 4 || s == 5
		}
	case SubsetThreeStars:
		keep = func(r models.Review) bool { return models.StarRating(r.Rating) == 3 }
	default:
		return nil, false
	}

	out := make([]models.Review, 0, len(all))
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, true
}

// ImportSubset sends one batched import of the chosen subset to the target
// product. Subsets containing reviews of 2 stars or less need an explicit
// confirmed=true, otherwise a ConfirmationRequiredError comes back with the
// counts so the client can ask the user. Only one bulk import runs at a
// time; a second request while one is pending fails fast without touching
// the backend.
func (a *Agent) ImportSubset(ctx context.Context, kind SubsetKind, confirmed bool) (*models.BulkImportResponse, error) {
	a.mu.Lock()
	if a.state == nil {
		a.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if a.importing {
		a.mu.Unlock()
		return nil, ErrImportInFlight
	}
	st := a.state
	if st.Target == nil {
		a.mu.Unlock()
		return nil, ErrNoTarget
	}
	if len(st.AllReviews) == 0 {
		a.mu.Unlock()
		return nil, ErrNoReviews
	}
	subset, ok := subsetOf(st.AllReviews, kind)
	if !ok {
		a.mu.Unlock()
		return nil, fmt.Errorf("unknown subset %q", kind)
	}
	if len(subset) == 0 {
		a.mu.Unlock()
		return nil, &EmptySubsetError{Kind: kind}
	}
	if !confirmed {
		negatives := 0
		for _, r := range subset {
			if models.StarRating(r.Rating) <= 2 {
				negatives++
			}
		}
		if negatives > 0 {
			a.mu.Unlock()
			return nil, &ConfirmationRequiredError{NegativeCount: negatives, SubsetSize: len(subset)}
		}
	}

	a.importing = true
	req := models.BulkImportRequest{
		Reviews:         subset,
		TargetProductID: st.Target.ID,
		SessionID:       st.SessionID,
		Platform:        st.Product.Platform,
	}
	if kind == SubsetAll {
		req.Filters = map[string]float64{"min_quality_score": 0}
	}
	sessionID := st.SessionID
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.importing = false
		a.mu.Unlock()
	}()

	a.progress.Publish(ProgressEvent{Status: ProgressStarted, Kind: string(kind), Total: len(subset)})

	resp, err := a.backend.ImportBulk(ctx, req)
	if err != nil {
		a.progress.Publish(ProgressEvent{Status: ProgressFailed, Kind: string(kind), Message: err.Error()})
		return nil, fmt.Errorf("bulk import: %w", err)
	}
	if !resp.Success {
		err := respError(resp.Error, "bulk import failed")
		a.progress.Publish(ProgressEvent{Status: ProgressFailed, Kind: string(kind), Message: err.Error()})
		return nil, err
	}

	a.backend.TrackEvent("import", "bulk_imported", sessionID)
	a.progress.Publish(ProgressEvent{
		Status:     ProgressFinished,
		Kind:       string(kind),
		Total:      len(subset),
		Imported:   resp.ImportedCount,
		Failed:     resp.FailedCount,
		Skipped:    resp.SkippedCount,
		Duplicates: resp.DuplicateCount,
	})
	a.log.Info().
		Str("subset", string(kind)).
		Int("imported", resp.ImportedCount).
		Int("failed", resp.FailedCount).
		Int("skipped", resp.SkippedCount).
		Msg("bulk import finished")
	return resp, nil
}
