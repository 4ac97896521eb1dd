package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

// RegisterTransformerRequest is the body of POST /transformers
type RegisterTransformerRequest struct {
	ID             string                 `json:"id" binding:"required"`
	Name           string                 `json:"name" binding:"required"`
	Site           string                 `json:"site" binding:"required"`
	Latitude       float64                `json:"latitude"`
	Longitude      float64                `json:"longitude"`
	Type           models.TransformerType `json:"type" binding:"required"`
	BatteryPercent int                    `json:"battery_percent"`
	SignalStrength int                    `json:"signal_strength"`
	InstallDate    *time.Time             `json:"install_date,omitempty"`
	QRCode         string                 `json:"qr_code"`
	GPSID          string                 `json:"gps_id"`
}

func (r RegisterTransformerRequest) input() ports.RegisterTransformerInput {
	return ports.RegisterTransformerInput{
		ID:             r.ID,
		Name:           r.Name,
		Site:           r.Site,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		Type:           r.Type,
		BatteryPercent: r.BatteryPercent,
		SignalStrength: r.SignalStrength,
		InstallDate:    r.InstallDate,
		QRCode:         r.QRCode,
		GPSID:          r.GPSID,
	}
}

// UpdateTransformerRequest is the body of PUT /transformers/:id. Absent fields are kept.
type UpdateTransformerRequest struct {
	Name      *string                 `json:"name,omitempty"`
	Site      *string                 `json:"site,omitempty"`
	Latitude  *float64                `json:"latitude,omitempty"`
	Longitude *float64                `json:"longitude,omitempty"`
	Type      *models.TransformerType `json:"type,omitempty"`
	QRCode    *string                 `json:"qr_code,omitempty"`
	GPSID     *string                 `json:"gps_id,omitempty"`
	Version   int64                   `json:"version" binding:"required"`
}

func (r UpdateTransformerRequest) input() ports.UpdateTransformerInput {
	return ports.UpdateTransformerInput{
		Name:      r.Name,
		Site:      r.Site,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Type:      r.Type,
		QRCode:    r.QRCode,
		GPSID:     r.GPSID,
		Version:   r.Version,
	}
}

// TelemetryRequest is a device report; both readings are required
type TelemetryRequest struct {
	BatteryPercent *int `json:"battery_percent" binding:"required"`
	SignalStrength *int `json:"signal_strength" binding:"required"`
}

// CreatePlanRequest is the body of POST /plans
type CreatePlanRequest struct {
	TransformerID string    `json:"transformer_id" binding:"required"`
	Name          string    `json:"name" binding:"required"`
	Category      string    `json:"category" binding:"required"`
	Recurrence    string    `json:"recurrence"`
	AssignedTo    string    `json:"assigned_to" binding:"required"`
	Checklist     []string  `json:"checklist"`
	NextDue       time.Time `json:"next_due" binding:"required"`
}

func (r CreatePlanRequest) input() ports.CreatePlanInput {
	return ports.CreatePlanInput{
		TransformerID: r.TransformerID,
		Name:          r.Name,
		Category:      r.Category,
		Recurrence:    r.Recurrence,
		AssignedTo:    r.AssignedTo,
		Checklist:     r.Checklist,
		NextDue:       r.NextDue,
	}
}

// AssignPlanRequest is the body of POST /plans/:id/assign
type AssignPlanRequest struct {
	AssigneeID string `json:"assignee_id" binding:"required"`
}

// StartExecutionRequest is the body of POST /plans/:id/start. The performer defaults to the caller.
type StartExecutionRequest struct {
	PerformerID string `json:"performer_id"`
}

// SubmitRecordRequest is the Quick Maintenance Form. The performer defaults to the caller.
type SubmitRecordRequest struct {
	PlanID        *string    `json:"plan_id,omitempty"`
	TransformerID string     `json:"transformer_id" binding:"required"`
	PerformerID   string     `json:"performer_id"`
	Notes         string     `json:"notes"`
	PhotoCount    int        `json:"photo_count"`
	Draft         bool       `json:"draft"`
	PerformedAt   *time.Time `json:"performed_at,omitempty"`
}

func (r SubmitRecordRequest) input(caller string) ports.SubmitRecordInput {
	in := ports.SubmitRecordInput{
		PlanID:        r.PlanID,
		TransformerID: r.TransformerID,
		PerformerID:   r.PerformerID,
		Notes:         r.Notes,
		PhotoCount:    r.PhotoCount,
		Draft:         r.Draft,
		PerformedAt:   r.PerformedAt,
	}
	if in.PerformerID == "" {
		in.PerformerID = caller
	}
	if in.PlanID != nil && strings.TrimSpace(*in.PlanID) == "" {
		in.PlanID = nil
	}
	return in
}

// UpdateDraftRequest is the body of PATCH /records/:id
type UpdateDraftRequest struct {
	Notes      *string `json:"notes,omitempty"`
	PhotoCount *int    `json:"photo_count,omitempty"`
}

// LookupRequest carries a scanned QR code, transformer ID or GPS tracker ID
type LookupRequest struct {
	Code string `json:"code" binding:"required"`
}

// ConfirmRequest is the evidence of a physical verification. The reconciler defaults to the caller.
type ConfirmRequest struct {
	TransformerID string                      `json:"transformer_id" binding:"required"`
	ReconcilerID  string                      `json:"reconciler_id"`
	GPSVerified   bool                        `json:"gps_verified"`
	PhotoCount    int                         `json:"photo_count"`
	Method        models.ReconciliationMethod `json:"method"`
	Notes         string                      `json:"notes"`
}

func (r ConfirmRequest) input(caller string) ports.ConfirmInput {
	in := ports.ConfirmInput{
		TransformerID: r.TransformerID,
		ReconcilerID:  r.ReconcilerID,
		GPSVerified:   r.GPSVerified,
		PhotoCount:    r.PhotoCount,
		Method:        r.Method,
		Notes:         r.Notes,
	}
	if in.ReconcilerID == "" {
		in.ReconcilerID = caller
	}
	if in.Method == "" {
		in.Method = models.ReconciliationMethodQR
	}
	return in
}

// CreateUserRequest is the body of POST /users
type CreateUserRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Phone      string `json:"phone"`
	Role       string `json:"role" binding:"required"`
	Department string `json:"department"`
}

// UpdateUserRequest is the body of PUT /users/:id. Absent fields are kept.
type UpdateUserRequest struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Role       *string `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	Version    int64   `json:"version" binding:"required"`
}

// SessionResponse describes the caller after login
type SessionResponse struct {
	User         *models.User      `json:"user"`
	Capabilities []ports.Operation `json:"capabilities"`
}

// ListResponse wraps a page of results
type ListResponse struct {
	Items  interface{} `json:"items"`
	Count  int         `json:"count"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
}

func listResponse[T any](items []T, page models.Page) ListResponse {
	if items == nil {
		items = []T{}
	}
	return ListResponse{Items: items, Count: len(items), Offset: page.Offset, Limit: page.Limit}
}

// parsePage reads offset and limit from the query string
func parsePage(c *gin.Context) (models.Page, error) {
	var page models.Page
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, fmt.Errorf("invalid offset %q", v)
		}
		page.Offset = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, fmt.Errorf("invalid limit %q", v)
		}
		page.Limit = n
	}
	return page.Normalize(), nil
}

// parseTimeQuery accepts RFC 3339 or a calendar date. A date used as an
// upper bound covers the whole day.
func parseTimeQuery(c *gin.Context, key string, upper bool) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: want RFC 3339 or YYYY-MM-DD", key, v)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseTimeRange(c *gin.Context) (*time.Time, *time.Time, error) {
	from, err := parseTimeQuery(c, "from", false)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseTimeQuery(c, "to", true)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseBoolQuery(c *gin.Context, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}
