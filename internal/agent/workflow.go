package agent

import (
	"context"
	"fmt"
)

// SingleOutcome reports what happened to the review under the cursor.
type SingleOutcome struct {
	ReviewID  string `json:"review_id"`
	Duplicate bool   `json:"duplicate"`
	Advanced  bool   `json:"advanced"`
}

// ImportCurrent sends the review under the cursor to the target product.
// A duplicate leaves the cursor in place so the user sees which review was
// rejected; a successful import moves on to the next one.
func (a *Agent) ImportCurrent(ctx context.Context) (*SingleOutcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil, ErrNotInitialized
	}
	if a.state.Target == nil {
		return nil, ErrNoTarget
	}
	r, ok := a.current()
	if !ok {
		return nil, ErrNoReviews
	}

	resp, err := a.backend.ImportSingle(ctx, r, a.state.Target.ID, a.state.SessionID)
	if err != nil {
		return nil, fmt.Errorf("import review: %w", err)
	}
	if !resp.Success {
		return nil, respError(resp.Error, resp.Message, "import failed")
	}
	a.backend.TrackEvent("import", "single_imported", a.state.SessionID)

	out := &SingleOutcome{ReviewID: r.ID, Duplicate: resp.Duplicate}
	if resp.Duplicate {
		a.log.Info().Str("review_id", r.ID).Msg("duplicate review, cursor kept")
		return out, nil
	}
	advanced, err := a.advance(ctx)
	if err != nil {
		return nil, err
	}
	out.Advanced = advanced
	return out, nil
}

// SkipCurrent records a skip for the review under the cursor and always
// moves on, whether or not the backend accepted it.
func (a *Agent) SkipCurrent(ctx context.Context) (*SingleOutcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil, ErrNotInitialized
	}
	r, ok := a.current()
	if !ok {
		return nil, ErrNoReviews
	}

	if err := a.backend.SkipReview(ctx, r.ID, a.state.SessionID); err != nil {
		a.log.Warn().Err(err).Str("review_id", r.ID).Msg("skip not recorded")
	} else {
		a.backend.TrackEvent("import", "single_skipped", a.state.SessionID)
	}

	advanced, err := a.advance(ctx)
	if err != nil {
		return nil, err
	}
	return &SingleOutcome{ReviewID: r.ID, Advanced: advanced}, nil
}

// Next moves the cursor forward, fetching the following backend page when
// the current view is exhausted and more pages exist.
func (a *Agent) Next(ctx context.Context) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil, ErrNotInitialized
	}
	advanced, err := a.advance(ctx)
	if err != nil {
		return nil, err
	}
	if !advanced {
		return nil, ErrNoMoreReviews
	}
	return a.snapshot(), nil
}

// Previous moves the cursor back, stopping at the first review.
func (a *Agent) Previous(ctx context.Context) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil, ErrNotInitialized
	}
	if a.state.CurrentIndex > 0 {
		a.state.CurrentIndex--
		a.persist(ctx)
	}
	return a.snapshot(), nil
}

// advance runs with the lock held. It returns false only when the cursor
// is at the true end: last review of the last page.
func (a *Agent) advance(ctx context.Context) (bool, error) {
	st := a.state
	if st.CurrentIndex < len(a.view.Reviews)-1 {
		st.CurrentIndex++
		a.persist(ctx)
		return true, nil
	}
	if st.Pagination.HasNext {
		if err := a.loadPage(ctx, st.Pagination.Page+1); err != nil {
			return false, err
		}
		return true, nil
	}
	a.persist(ctx)
	return false, nil
}
