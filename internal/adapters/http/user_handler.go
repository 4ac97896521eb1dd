package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

// ListUsers handles GET /api/v1/users?role=&status=&q=
func (h *Handler) ListUsers(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	filter := models.UserFilter{
		Status:     models.AccountStatus(c.Query("status")),
		SearchText: c.Query("q"),
	}
	if v := c.Query("role"); v != "" {
		if filter.Role, err = models.ParseRole(v); err != nil {
			badRequest(c, err)
			return
		}
	}

	users, err := h.users.ListUsers(c.Request.Context(), callerID(c), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(users, page))
}

// GetUser handles GET /api/v1/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateUser handles POST /api/v1/users
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), callerID(c), ports.CreateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Role:       req.Role,
		Department: req.Department,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UpdateUser handles PUT /api/v1/users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), callerID(c), c.Param("id"), ports.UpdateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Role:       req.Role,
		Department: req.Department,
		Version:    req.Version,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeactivateUser handles POST /api/v1/users/:id/deactivate
func (h *Handler) DeactivateUser(c *gin.Context) {
	h.setUserStatus(c, models.AccountInactive)
}

// ActivateUser handles POST /api/v1/users/:id/activate
func (h *Handler) ActivateUser(c *gin.Context) {
	h.setUserStatus(c, models.AccountActive)
}

func (h *Handler) setUserStatus(c *gin.Context, status models.AccountStatus) {
	user, err := h.users.SetUserStatus(c.Request.Context(), callerID(c), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
