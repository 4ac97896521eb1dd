package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	GetType() ports.DatabaseType
}

// Handler handles HTTP requests for the asset API
type Handler struct {
	assets         ports.AssetService
	maintenance    ports.MaintenanceService
	reconciliation ports.ReconciliationService
	users          ports.UserService
	reports        ports.ReportService
	gate           ports.AccessGate
	health         HealthChecker
}

// NewHandler creates a new HTTP handler
func NewHandler(services *ports.Services, health HealthChecker) *Handler {
	return &Handler{
		assets:         services.Assets,
		maintenance:    services.Maintenance,
		reconciliation: services.Reconciliation,
		users:          services.Users,
		reports:        services.Reports,
		gate:           services.Gate,
		health:         health,
	}
}

// Login records a login for the caller and returns the session view
// POST /api/v1/login
func (h *Handler) Login(c *gin.Context) {
	user, err := h.users.RecordLogin(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{User: user, Capabilities: h.gate.Capabilities(user.Role)})
}

// Me returns the caller and its capabilities
// GET /api/v1/me
func (h *Handler) Me(c *gin.Context) {
	caller := callerID(c)
	user, err := h.users.GetUser(c.Request.Context(), caller, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{User: user, Capabilities: h.gate.Capabilities(user.Role)})
}

// HealthCheck handles health check requests
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"service":   "assettrack",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.health == nil {
		c.JSON(http.StatusOK, body)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	body["database"] = h.health.GetType()
	if err := h.health.HealthCheck(ctx); err != nil {
		body["status"] = "unhealthy"
		body["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
