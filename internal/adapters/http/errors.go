package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/logger"
)

// ProblemDetails represents an error response following RFC 7807
type ProblemDetails struct {
	Type      string `json:"type,omitempty"`
	Title     string `json:"title,omitempty"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func newProblem(c *gin.Context, status int, title, detail string) ProblemDetails {
	return ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request.URL.Path,
	}
}

// problemFor maps a service error onto its HTTP representation
func problemFor(c *gin.Context, err error) ProblemDetails {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return newProblem(c, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, models.ErrValidation):
		return newProblem(c, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, models.ErrForbidden):
		return newProblem(c, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, models.ErrVersionConflict):
		p := newProblem(c, http.StatusConflict, "Version Conflict", err.Error())
		p.Retryable = true
		return p
	case errors.Is(err, models.ErrInvalidState):
		return newProblem(c, http.StatusConflict, "Invalid State", err.Error())
	default:
		return newProblem(c, http.StatusInternalServerError, "Internal Server Error", "the request could not be completed")
	}
}

// respondError writes err as ProblemDetails and aborts the chain
func respondError(c *gin.Context, err error) {
	p := problemFor(c, err)
	if p.Status == http.StatusInternalServerError {
		logger.Log.Errorw("Request failed", "path", c.Request.URL.Path, "caller", callerID(c), "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(p.Status, p)
}

// badRequest reports a malformed request body or query
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, newProblem(c, http.StatusBadRequest, "Bad Request", err.Error()))
}
