package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// Dashboard handles GET /api/v1/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.reports.Dashboard(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Alerts handles GET /api/v1/alerts
func (h *Handler) Alerts(c *gin.Context) {
	alerts, err := h.reports.Alerts(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(alerts, models.All))
}

// ListChanges handles GET /api/v1/changes?entity=&entity_id=&changed_by=&from=&to=
func (h *Handler) ListChanges(c *gin.Context) {
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

	filter := models.ChangeFilter{
		Entity:    models.EntityKind(c.Query("entity")),
		EntityID:  c.Query("entity_id"),
		ChangedBy: c.Query("changed_by"),
		From:      from,
		To:        to,
	}
	changes, err := h.reports.ListChanges(c.Request.Context(), callerID(c), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(changes, page))
}
