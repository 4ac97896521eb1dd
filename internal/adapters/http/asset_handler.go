package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// ListTransformers handles GET /api/v1/transformers?status=&q=&site=&offset=&limit=
func (h *Handler) ListTransformers(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	archived, err := parseBoolQuery(c, "archived")
	if err != nil {
		badRequest(c, err)
		return
	}

	filter := models.TransformerFilter{
		Status:          models.TransformerStatus(c.Query("status")),
		SearchText:      c.Query("q"),
		Site:            c.Query("site"),
		IncludeArchived: archived,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		badRequest(c, models.Validation("unknown transformer status %q", filter.Status))
		return
	}

	views, err := h.assets.ListTransformers(c.Request.Context(), callerID(c), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(views, page))
}

// GetTransformer handles GET /api/v1/transformers/:id
func (h *Handler) GetTransformer(c *gin.Context) {
	view, err := h.assets.GetTransformer(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RegisterTransformer handles POST /api/v1/transformers
func (h *Handler) RegisterTransformer(c *gin.Context) {
	var req RegisterTransformerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.assets.RegisterTransformer(c.Request.Context(), callerID(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// UpdateTransformer handles PUT /api/v1/transformers/:id
func (h *Handler) UpdateTransformer(c *gin.Context) {
	var req UpdateTransformerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.assets.UpdateTransformer(c.Request.Context(), callerID(c), c.Param("id"), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ReportTelemetry handles POST /api/v1/transformers/:id/telemetry
func (h *Handler) ReportTelemetry(c *gin.Context) {
	var req TelemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.assets.ReportTelemetry(c.Request.Context(), callerID(c), c.Param("id"), *req.BatteryPercent, *req.SignalStrength)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ArchiveTransformer handles DELETE /api/v1/transformers/:id
func (h *Handler) ArchiveTransformer(c *gin.Context) {
	if err := h.assets.ArchiveTransformer(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TransformerReconciliation handles GET /api/v1/transformers/:id/reconciliation
func (h *Handler) TransformerReconciliation(c *gin.Context) {
	view, err := h.reconciliation.Status(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
