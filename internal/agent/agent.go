package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"reviewking/agent/internal/detect"
	"reviewking/agent/internal/extract"
	"reviewking/agent/internal/inject"
	"reviewking/agent/internal/models"
	"reviewking/agent/internal/page"
	"reviewking/agent/internal/rank"
	"reviewking/agent/internal/services"
)

// Agent drives one review import session: it detects the source product,
// keeps the review list and cursor in redis-backed session state, and talks
// to the catalog backend for fetches and imports. One Agent serves one page.
type Agent struct {
	backend  *services.BackendClient
	sessions services.SessionStore
	progress *ProgressHub
	perPage  int
	log      zerolog.Logger

	mu        sync.Mutex
	state     *models.SessionState
	view      rank.View
	importing bool
}

func New(backend *services.BackendClient, sessions services.SessionStore, perPage int, log zerolog.Logger) *Agent {
	if perPage <= 0 {
		perPage = 150
	}
	return &Agent{
		backend:  backend,
		sessions: sessions,
		progress: NewProgressHub(),
		perPage:  perPage,
		log:      log.With().Str("component", "agent").Logger(),
	}
}

// Progress exposes the bulk import event hub for streaming handlers.
func (a *Agent) Progress() *ProgressHub { return a.progress }

// InitResult is what Init hands back: either a ready session snapshot, or
// a flag saying the page is an embedded listing where the product is only
// known after the user clicks one.
type InitResult struct {
	ModalMode bool      `json:"modal_mode"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
}

// Snapshot is the read model served to clients: session identity, the
// filtered review view with cursor, and the headline stats.
type Snapshot struct {
	SessionID        string                 `json:"session_id"`
	Product          models.ProductContext  `json:"product"`
	Target           *models.SelectedTarget `json:"target,omitempty"`
	Reviews          []models.Review        `json:"reviews"`
	CurrentIndex     int                    `json:"current_index"`
	Filter           string                 `json:"filter"`
	Country          string                 `json:"country"`
	ShowTranslations bool                   `json:"show_translations"`
	SmartSorted      bool                   `json:"smart_sorted"`
	Pagination       models.Pagination      `json:"pagination"`
	Stats            models.Stats           `json:"stats"`
	Countries        []models.CountryCount  `json:"countries"`
}

// Init inspects the page and either starts a session immediately (direct
// product page) or reports that the caller must watch for a product click
// first (embedded listing mode). Failing to find a product on a direct
// page is fatal for the session.
func (a *Agent) Init(ctx context.Context, rawURL string, html io.Reader) (*InitResult, error) {
	doc, err := page.Parse(rawURL, html)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	if detect.Mode(rawURL) {
		a.log.Info().Str("url", rawURL).Msg("embedded listing detected, waiting for product click")
		return &InitResult{ModalMode: true}, nil
	}

	pc, err := detect.Product(doc)
	if err != nil {
		return nil, err
	}
	hints := extract.Reviews(doc, pc)
	a.log.Info().
		Str("platform", string(pc.Platform)).
		Str("product_id", pc.ProductID).
		Int("page_reviews", len(hints)).
		Msg("product detected")

	snap, err := a.StartFromProduct(ctx, pc, hints...)
	if err != nil {
		return nil, err
	}
	return &InitResult{Snapshot: snap}, nil
}

// WatchModal arms the click-to-import control for embedded listings and
// starts a session once a product click is validated.
func (a *Agent) WatchModal(pageURL string, surface inject.Surface, opts ...inject.Option) *inject.Machine {
	m := inject.NewMachine(surface, inject.AliExpressConfig(), a.log, opts...)
	m.OnProduct = func(productID string) {
		pc := models.ProductContext{
			Platform:  models.PlatformAliExpress,
			ProductID: productID,
			SourceURL: pageURL,
		}
		if _, err := a.StartFromProduct(context.Background(), pc); err != nil {
			a.log.Error().Err(err).Str("product_id", productID).Msg("session start after product click failed")
		}
	}
	m.Start()
	return m
}

// StartFromProduct opens a fresh session for the product and loads the
// first review page. Reviews extracted from the page itself are only used
// when the backend has nothing for the product.
func (a *Agent) StartFromProduct(ctx context.Context, pc models.ProductContext, hints ...models.Review) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = &models.SessionState{
		SessionID:        services.NewSessionID(),
		Product:          pc,
		CurrentFilter:    string(rank.FilterAll),
		SelectedCountry:  rank.CountryAll,
		ShowTranslations: true,
	}
	if err := a.loadPage(ctx, 1); err != nil {
		a.state = nil
		return nil, err
	}
	if len(a.state.AllReviews) == 0 && len(hints) > 0 {
		a.log.Info().Int("count", len(hints)).Msg("backend returned no reviews, using page extraction")
		a.state.AllReviews = hints
		a.state.Stats = rank.Summarize(hints)
		a.applyFilter()
		a.state.CurrentIndex = 0
		a.persist(ctx)
	}
	return a.snapshot(), nil
}

// Resume restores a previously saved session from the store.
func (a *Agent) Resume(ctx context.Context, sessionID string) (*Snapshot, error) {
	st, err := a.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resume session: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = st
	a.applyFilter()
	if st.CurrentIndex >= len(a.view.Reviews) {
		st.CurrentIndex = 0
	}
	return a.snapshot(), nil
}

// LoadPage fetches the given backend page and replaces the review set.
func (a *Agent) LoadPage(ctx context.Context, pageNum int) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil, ErrNotInitialized
	}
	if err := a.loadPage(ctx, pageNum); err != nil {
		return nil, err
	}
	return a.snapshot(), nil
}

// loadPage runs with the lock held. The fetched page replaces AllReviews
// wholesale and resets the cursor; stats are recomputed over the new set.
func (a *Agent) loadPage(ctx context.Context, pageNum int) error {
	st := a.state
	resp, err := a.backend.FetchReviewPage(ctx, st.Product, pageNum, a.perPage, st.SessionID)
	if err != nil {
		return fmt.Errorf("fetch reviews: %w", err)
	}
	if !resp.Success {
		return respError(resp.Message, resp.Error, "failed to load reviews")
	}

	// The backend may hand out its own session id on the first fetch;
	// adopt it and move the stored state under the new key.
	if resp.SessionID != "" && resp.SessionID != st.SessionID {
		old := st.SessionID
		st.SessionID = resp.SessionID
		if err := a.sessions.Rekey(ctx, old, resp.SessionID); err != nil {
			a.log.Debug().Err(err).Str("session_id", resp.SessionID).Msg("session rekey skipped")
		}
	}

	st.AllReviews = resp.Reviews
	if st.AllReviews == nil {
		st.AllReviews = []models.Review{}
	}
	st.Pagination = resp.Pagination
	if st.Pagination.Page == 0 {
		st.Pagination.Page = pageNum
	}
	st.Stats = rank.Summarize(st.AllReviews)
	if q := resp.AverageQuality(); q > 0 {
		st.Stats.AverageQuality = q
	}
	if r := resp.AverageRating(); r > 0 {
		st.Stats.AverageRating = r
	}
	a.applyFilter()
	st.CurrentIndex = 0
	a.persist(ctx)

	a.log.Info().
		Int("page", st.Pagination.Page).
		Int("reviews", len(st.AllReviews)).
		Bool("has_next", st.Pagination.HasNext).
		Msg("review page loaded")
	return nil
}

// SetFilter switches the active filter and resets the cursor.
func (a *Agent) SetFilter(ctx context.Context, filter string) (*Snapshot, error) {
	switch rank.Filter(filter) {
	case rank.FilterAll, rank.FilterPhotos, rank.FilterAIRecommended,
		rank.FilterFourFiveStars, rank.FilterThreeStars, rank.FilterFiveStars:
	default:
		return nil, fmt.Errorf("unknown filter %q", filter)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil, ErrNotInitialized
	}
	a.state.CurrentFilter = filter
	a.applyFilter()
	a.state.CurrentIndex = 0
	a.persist(ctx)
	return a.snapshot(), nil
}

// SetCountry narrows the view to one country code ("all" clears it).
func (a *Agent) SetCountry(ctx context.Context, country string) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil, ErrNotInitialized
	}
	if country == "" {
		country = rank.CountryAll
	}
	a.state.SelectedCountry = country
	a.applyFilter()
	a.state.CurrentIndex = 0
	a.persist(ctx)
	return a.snapshot(), nil
}

// SetTranslations toggles whether translated text is preferred for display.
func (a *Agent) SetTranslations(ctx context.Context, on bool) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil, ErrNotInitialized
	}
	a.state.ShowTranslations = on
	a.persist(ctx)
	return a.snapshot(), nil
}

// SearchTargets looks up destination products in the catalog.
func (a *Agent) SearchTargets(ctx context.Context, query string) ([]models.CatalogProduct, error) {
	return a.backend.SearchProducts(ctx, query)
}

// SelectTarget picks the catalog product that imports will go to.
func (a *Agent) SelectTarget(ctx context.Context, t models.SelectedTarget) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil, ErrNotInitialized
	}
	if t.ID == "" {
		return nil, errors.New("target product id is required")
	}
	a.state.Target = &t
	a.persist(ctx)
	return a.snapshot(), nil
}

// ClearTarget drops the destination product.
func (a *Agent) ClearTarget(ctx context.Context) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil, ErrNotInitialized
	}
	a.state.Target = nil
	a.persist(ctx)
	return a.snapshot(), nil
}

// Heartbeat re-saves the session so its TTL keeps sliding while the page
// stays open.
func (a *Agent) Heartbeat(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return ErrNotInitialized
	}
	return a.sessions.Save(ctx, a.state)
}

// Close tears the session down and deletes the stored state.
func (a *Agent) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil
	}
	id := a.state.SessionID
	a.state = nil
	a.view = rank.View{}
	if err := a.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Snapshot returns the current read model, or nil before Init.
func (a *Agent) Snapshot() *Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil
	}
	return a.snapshot()
}

// Current returns the review under the cursor.
func (a *Agent) Current() (models.Review, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current()
}

func (a *Agent) current() (models.Review, bool) {
	if a.state == nil || a.state.CurrentIndex >= len(a.view.Reviews) {
		return models.Review{}, false
	}
	return a.view.Reviews[a.state.CurrentIndex], true
}

// applyFilter recomputes the view from AllReviews. When the engine falls
// back from a too-small ai_recommended set, the session filter follows it
// to "all" so the client shows the right tab.
func (a *Agent) applyFilter() {
	st := a.state
	v := rank.Apply(st.AllReviews, rank.Filter(st.CurrentFilter), st.SelectedCountry)
	if v.SmartSorted {
		st.CurrentFilter = string(rank.FilterAll)
	}
	st.SmartSorted = v.SmartSorted
	a.view = v
}

// persist saves session state best-effort; a broken store must not take
// the review workflow down with it.
func (a *Agent) persist(ctx context.Context) {
	if err := a.sessions.Save(ctx, a.state); err != nil {
		a.log.Warn().Err(err).Str("session_id", a.state.SessionID).Msg("session save failed")
	}
}

func (a *Agent) snapshot() *Snapshot {
	st := a.state
	return &Snapshot{
		SessionID:        st.SessionID,
		Product:          st.Product,
		Target:           st.Target,
		Reviews:          a.view.Reviews,
		CurrentIndex:     st.CurrentIndex,
		Filter:           st.CurrentFilter,
		Country:          st.SelectedCountry,
		ShowTranslations: st.ShowTranslations,
		SmartSorted:      st.SmartSorted,
		Pagination:       st.Pagination,
		Stats:            st.Stats,
		Countries:        rank.CountryCounts(st.AllReviews),
	}
}

func respError(msgs ...string) error {
	for _, m := range msgs {
		if m != "" {
			return errors.New(m)
		}
	}
	return errors.New("backend request failed")
}
