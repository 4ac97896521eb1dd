package http

import (
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hsdfat8/assettrack/internal/logger"
	"golang.org/x/time/rate"
)

// CallerHeader carries the identity of the acting user
const CallerHeader = "X-User-ID"

const callerKey = "caller_id"

// ginLogger returns a gin.HandlerFunc (middleware) that logs requests using our logger
func ginLogger() gin.HandlerFunc {
	logger := logger.New("gin-http", "")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		fields := []interface{}{
			"status", statusCode,
			"method", c.Request.Method,
			"path", path,
			"ip", c.ClientIP(),
			"latency_ms", latency.Milliseconds(),
		}

		if caller := c.GetString(callerKey); caller != "" {
			fields = append(fields, "caller", caller)
		}

		if query != "" {
			fields = append(fields, "query", query)
		}

		if errorMessage != "" {
			fields = append(fields, "error", errorMessage)
		}

		if statusCode >= 500 {
			logger.Errorw("HTTP request error", fields...)
		} else if statusCode >= 400 {
			logger.Warnw("HTTP request warning", fields...)
		} else {
			logger.Infow("HTTP request", fields...)
		}
	}
}

// ginRecovery returns a gin.HandlerFunc (middleware) that recovers from panics and logs using our logger
func ginRecovery() gin.HandlerFunc {
	logger := logger.New("gin-recovery", "")

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("Panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"ip", c.ClientIP(),
					"stack", string(debug.Stack()),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, newProblem(c, http.StatusInternalServerError, "Internal Server Error", "unexpected server error"))
			}
		}()
		c.Next()
	}
}

// requireCaller rejects requests that do not identify the acting user
func requireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := strings.TrimSpace(c.GetHeader(CallerHeader))
		if caller == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newProblem(c, http.StatusUnauthorized, "Unauthorized", "missing "+CallerHeader+" header"))
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func callerID(c *gin.Context) string {
	return c.GetString(callerKey)
}

// IPRateLimiter stores a rate limiter for each client IP
type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.RWMutex
	r   rate.Limit
	b   int
}

// NewIPRateLimiter creates a new IPRateLimiter
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

// GetLimiter returns the rate limiter for an IP address, creating it on first use
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.ips[ip]
	i.mu.RUnlock()
	if exists {
		return limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if limiter, exists = i.ips[ip]; !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = limiter
	}
	return limiter
}

// rateLimiter is a middleware for IP-based rate limiting
func rateLimiter(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, newProblem(c, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded"))
			return
		}
		c.Next()
	}
}
