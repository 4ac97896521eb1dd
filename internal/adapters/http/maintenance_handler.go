package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// ListPlans handles GET /api/v1/plans?transformer_id=&assigned_to=&category=&status=
func (h *Handler) ListPlans(c *gin.Context) {
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

	filter := models.PlanFilter{
		TransformerID:   c.Query("transformer_id"),
		AssignedTo:      c.Query("assigned_to"),
		Status:          models.PlanStatus(c.Query("status")),
		IncludeArchived: archived,
	}
	if v := c.Query("category"); v != "" {
		if filter.Category, err = models.ParsePlanCategory(v); err != nil {
			badRequest(c, err)
			return
		}
	}
	if filter.Status != "" && !filter.Status.Valid() {
		badRequest(c, models.Validation("unknown plan status %q", filter.Status))
		return
	}

	plans, err := h.maintenance.ListPlans(c.Request.Context(), callerID(c), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(plans, page))
}

// ListOverdue handles GET /api/v1/plans/overdue
func (h *Handler) ListOverdue(c *gin.Context) {
	plans, err := h.maintenance.ListOverdue(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(plans, models.All))
}

// GetPlan handles GET /api/v1/plans/:id
func (h *Handler) GetPlan(c *gin.Context) {
	plan, err := h.maintenance.GetPlan(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// CreatePlan handles POST /api/v1/plans
func (h *Handler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	plan, err := h.maintenance.CreatePlan(c.Request.Context(), callerID(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// AssignPlan handles POST /api/v1/plans/:id/assign
func (h *Handler) AssignPlan(c *gin.Context) {
	var req AssignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	plan, err := h.maintenance.AssignPlan(c.Request.Context(), callerID(c), c.Param("id"), req.AssigneeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// StartExecution handles POST /api/v1/plans/:id/start
func (h *Handler) StartExecution(c *gin.Context) {
	var req StartExecutionRequest
	// an empty body starts the execution as the caller
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	if req.PerformerID == "" {
		req.PerformerID = callerID(c)
	}

	plan, err := h.maintenance.StartExecution(c.Request.Context(), callerID(c), c.Param("id"), req.PerformerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ArchivePlan handles DELETE /api/v1/plans/:id
func (h *Handler) ArchivePlan(c *gin.Context) {
	if err := h.maintenance.ArchivePlan(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitRecord handles POST /api/v1/records
func (h *Handler) SubmitRecord(c *gin.Context) {
	var req SubmitRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.maintenance.SubmitRecord(c.Request.Context(), callerID(c), req.input(callerID(c)))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListHistory handles GET /api/v1/records?transformer_id=&plan_id=&from=&to=
func (h *Handler) ListHistory(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	filter, err := recordFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	records, err := h.maintenance.ListHistory(c.Request.Context(), callerID(c), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(records, page))
}

// GetRecord handles GET /api/v1/records/:id
func (h *Handler) GetRecord(c *gin.Context) {
	record, err := h.maintenance.GetRecord(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// UpdateDraft handles PATCH /api/v1/records/:id
func (h *Handler) UpdateDraft(c *gin.Context) {
	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	record, err := h.maintenance.UpdateDraft(c.Request.Context(), callerID(c), c.Param("id"), req.Notes, req.PhotoCount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// FinalizeDraft handles POST /api/v1/records/:id/finalize
func (h *Handler) FinalizeDraft(c *gin.Context) {
	result, err := h.maintenance.FinalizeDraft(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportHistory handles GET /api/v1/records/export and streams the history as CSV
func (h *Handler) ExportHistory(c *gin.Context) {
	filter, err := recordFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.reports.ExportHistoryCSV(c.Request.Context(), callerID(c), filter, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="maintenance-history.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func recordFilter(c *gin.Context) (models.RecordFilter, error) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		return models.RecordFilter{}, err
	}
	filter := models.RecordFilter{
		TransformerID: c.Query("transformer_id"),
		PlanID:        c.Query("plan_id"),
		PerformedBy:   c.Query("performed_by"),
		Status:        models.RecordStatus(c.Query("status")),
		From:          from,
		To:            to,
	}
	switch filter.Status {
	case "", models.RecordStatusDraft, models.RecordStatusCompleted:
	default:
		return filter, models.Validation("unknown record status %q", filter.Status)
	}
	return filter, nil
}
