package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"reviewking/agent/internal/agent"
	"reviewking/agent/internal/detect"
	"reviewking/agent/internal/models"
)

// Handler holds the single agent instance the control API drives.
type Handler struct {
	agent *agent.Agent
	log   zerolog.Logger
}

// NewHandler creates a Handler bound to one agent.
func NewHandler(a *agent.Agent, log zerolog.Logger) *Handler {
	return &Handler{agent: a, log: log.With().Str("component", "api").Logger()}
}

// HealthCheck returns 200 when the agent service is up.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "reviewking-agent",
	})
}

// InitAgent detects the product on the submitted page and opens a session.
func (h *Handler) InitAgent(c *gin.Context) {
	var req struct {
		URL  string `json:"url" binding:"required"`
		HTML string `json:"html"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	result, err := h.agent.Init(c.Request.Context(), req.URL, strings.NewReader(req.HTML))
	if err != nil {
		if errors.Is(err, detect.ErrNoProduct) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CloseAgent tears down the active session.
func (h *Handler) CloseAgent(c *gin.Context) {
	if err := h.agent.Close(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// GetState returns the current session snapshot.
func (h *Handler) GetState(c *gin.Context) {
	snap := h.agent.Snapshot()
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SetFilter applies a review filter and/or country selection.
func (h *Handler) SetFilter(c *gin.Context) {
	var req struct {
		Filter  string `json:"filter"`
		Country string `json:"country"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Filter == "" && req.Country == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filter or country is required"})
		return
	}

	var (
		snap *agent.Snapshot
		err  error
	)
	if req.Filter != "" {
		snap, err = h.agent.SetFilter(c.Request.Context(), req.Filter)
		if err != nil {
			h.fail(c, err)
			return
		}
	}
	if req.Country != "" {
		snap, err = h.agent.SetCountry(c.Request.Context(), req.Country)
		if err != nil {
			h.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, snap)
}

// SetTranslations toggles translated review text.
func (h *Handler) SetTranslations(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	snap, err := h.agent.SetTranslations(c.Request.Context(), req.Enabled)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SearchProducts proxies a catalog search for target selection.
func (h *Handler) SearchProducts(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	products, err := h.agent.SearchTargets(c.Request.Context(), query)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// SelectTarget picks the catalog product imports will go to.
func (h *Handler) SelectTarget(c *gin.Context) {
	var req models.SelectedTarget
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target id is required"})
		return
	}
	snap, err := h.agent.SelectTarget(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ClearTarget drops the selected catalog product.
func (h *Handler) ClearTarget(c *gin.Context) {
	snap, err := h.agent.ClearTarget(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ImportCurrent imports the review under the cursor.
func (h *Handler) ImportCurrent(c *gin.Context) {
	out, err := h.agent.ImportCurrent(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SkipCurrent skips the review under the cursor.
func (h *Handler) SkipCurrent(c *gin.Context) {
	out, err := h.agent.SkipCurrent(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// NextReview moves the cursor forward.
func (h *Handler) NextReview(c *gin.Context) {
	snap, err := h.agent.Next(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// PreviousReview moves the cursor back.
func (h *Handler) PreviousReview(c *gin.Context) {
	snap, err := h.agent.Previous(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// BulkImport imports a whole subset in one backend call.
func (h *Handler) BulkImport(c *gin.Context) {
	var req struct {
		Kind            string `json:"kind" binding:"required"`
		ConfirmNegative bool   `json:"confirm_negative"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind is required"})
		return
	}
	resp, err := h.agent.ImportSubset(c.Request.Context(), agent.SubsetKind(req.Kind), req.ConfirmNegative)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Heartbeat refreshes the session TTL.
func (h *Handler) Heartbeat(c *gin.Context) {
	if err := h.agent.Heartbeat(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail maps agent errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	var confirm *agent.ConfirmationRequiredError
	if errors.As(err, &confirm) {
		c.JSON(http.StatusConflict, gin.H{
			"error":                 err.Error(),
			"confirmation_required": true,
			"negative_count":        confirm.NegativeCount,
			"subset_size":           confirm.SubsetSize,
		})
		return
	}

	var empty *agent.EmptySubsetError
	switch {
	case errors.Is(err, agent.ErrNotInitialized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, agent.ErrImportInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, agent.ErrNoTarget),
		errors.Is(err, agent.ErrNoReviews),
		errors.Is(err, agent.ErrNoMoreReviews),
		errors.As(err, &empty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
