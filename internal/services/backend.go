package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"reviewking/agent/internal/models"
)

// BackendClient talks to the review-import backend over JSON/HTTP. The
// client carries no timeout: a hung request resolves whenever the transport
// does, and the caller's busy state stays set until then.
type BackendClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewBackendClient creates a client for the given backend base URL.
func NewBackendClient(baseURL string, log zerolog.Logger) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		log:     log.With().Str("component", "backend").Logger(),
	}
}

// FetchReviewPage requests one page of reviews for a product. The backend
// re-scrapes server-side; the response is the authoritative review set.
func (b *BackendClient) FetchReviewPage(ctx context.Context, pc models.ProductContext, page, perPage int, sessionID string) (*models.FetchResponse, error) {
	params := url.Values{}
	params.Set("productId", pc.ProductID)
	params.Set("platform", string(pc.Platform))
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("id", sessionID)

	var resp models.FetchResponse
	if err := b.getJSON(ctx, "/reviews/import/url?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchProducts queries the destination catalog for target candidates.
func (b *BackendClient) SearchProducts(ctx context.Context, query string) ([]models.CatalogProduct, error) {
	var resp models.SearchResponse
	if err := b.getJSON(ctx, "/products/search?q="+url.QueryEscape(query), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, backendError(resp.Error, "product search failed")
	}
	return resp.Products, nil
}

// ImportSingle submits one review to the selected target product.
func (b *BackendClient) ImportSingle(ctx context.Context, review models.Review, targetID, sessionID string) (*models.SingleImportResponse, error) {
	req := models.SingleImportRequest{
		Review:          review,
		TargetProductID: targetID,
		SessionID:       sessionID,
	}
	var resp models.SingleImportResponse
	if err := b.postJSON(ctx, "/reviews/import/single", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SkipReview marks a review skipped server-side so later bulk operations
// exclude it.
func (b *BackendClient) SkipReview(ctx context.Context, reviewID, sessionID string) error {
	req := models.SkipRequest{ReviewID: reviewID, SessionID: sessionID}
	var resp models.SkipResponse
	if err := b.postJSON(ctx, "/reviews/skip", req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return backendError(resp.Error, "skip failed")
	}
	return nil
}

// ImportBulk submits a whole subset in one batched request.
func (b *BackendClient) ImportBulk(ctx context.Context, req models.BulkImportRequest) (*models.BulkImportResponse, error) {
	var resp models.BulkImportResponse
	if err := b.postJSON(ctx, "/reviews/import/bulk", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TrackEvent fires a best-effort analytics ping. The response is discarded
// and failures are only logged.
func (b *BackendClient) TrackEvent(category, action, sessionID string) {
	params := url.Values{}
	params.Set("cat", category)
	params.Set("a", action)
	params.Set("c", sessionID)
	endpoint := b.baseURL + "/e?" + params.Encode()

	go func() {
		resp, err := b.client.Get(endpoint)
		if err != nil {
			b.log.Debug().Err(err).Str("action", action).Msg("analytics ping failed")
			return
		}
		resp.Body.Close()
	}()
}

func (b *BackendClient) getJSON(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return b.do(req, dest)
}

func (b *BackendClient) postJSON(ctx context.Context, path string, body, dest interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, dest)
}

func (b *BackendClient) do(req *http.Request, dest interface{}) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode backend response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// backendError prefers the backend's own message over generic text.
func backendError(msg, fallback string) error {
	if msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("%s", fallback)
}
