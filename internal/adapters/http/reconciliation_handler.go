package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// Lookup handles POST /api/v1/reconciliation/lookup and opens a pending session for the caller
func (h *Handler) Lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.reconciliation.Lookup(c.Request.Context(), callerID(c), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Confirm handles POST /api/v1/reconciliation/confirm
func (h *Handler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	event, err := h.reconciliation.Confirm(c.Request.Context(), callerID(c), req.input(callerID(c)))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// ListEvents handles GET /api/v1/reconciliation/events?transformer_id=&reconciled_by=&from=&to=
func (h *Handler) ListEvents(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	from, to, err := parseTimeRange(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	filter := models.EventFilter{
		TransformerID: c.Query("transformer_id"),
		ReconciledBy:  c.Query("reconciled_by"),
		From:          from,
		To:            to,
	}
	events, err := h.reconciliation.ListEvents(c.Request.Context(), callerID(c), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(events, page))
}

// ReconciliationSummary handles GET /api/v1/reconciliation/summary?site=
func (h *Handler) ReconciliationSummary(c *gin.Context) {
	summary, err := h.reconciliation.Summary(c.Request.Context(), callerID(c), c.Query("site"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
