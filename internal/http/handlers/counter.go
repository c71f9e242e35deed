package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lkataba/community-backend/internal/counter"
	"github.com/lkataba/community-backend/internal/http/middleware"
)

// CounterHandler serves the public submission counter and its analytics view.
// Rate limiting lives in the counter cache itself, keyed by session, so the
// limits hold even if the edge limiter is retuned.
type CounterHandler struct {
	Counter *counter.Cache
}

// NewCounterHandler constructs a CounterHandler.
func NewCounterHandler(c *counter.Cache) *CounterHandler {
	return &CounterHandler{Counter: c}
}

func sessionID(c *gin.Context) string {
	if sid := c.GetHeader(middleware.HeaderSessionID); sid != "" {
		return sid
	}
	return "anonymous"
}

// Get handles GET /api/counter. Throttled sessions still receive the last
// cached value so the page keeps a number to display.
func (h *CounterHandler) Get(c *gin.Context) {
	res, err := h.Counter.Get(c.Request.Context(), sessionID(c))
	if err != nil {
		var rl *counter.RateLimitError
		if errors.As(err, &rl) {
			c.Header("Retry-After", strconv.Itoa(rl.RetryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"message":    "Too many requests. Please try again later.",
				"counter":    h.Counter.Value(),
				"cached":     true,
				"retryAfter": rl.RetryAfter,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Server error occurred",
			"counter": h.Counter.Value(),
		})
		return
	}

	out := gin.H{
		"success": true,
		"counter": res.Count,
		"storage": res.Storage,
		"cached":  res.Cached,
	}
	if res.Cached {
		out["cacheAge"] = int(res.CacheAge.Seconds())
	}
	if res.Updating {
		out["updating"] = true
	}
	if res.Warning != "" {
		out["warning"] = res.Warning
	}
	ok(c, out)
}

// Analytics handles GET /api/counter/analytics, the growth snapshot behind
// the counter. It runs under its own tighter per-session limit.
func (h *CounterHandler) Analytics(c *gin.Context) {
	a, err := h.Counter.GetAnalytics(c.Request.Context(), sessionID(c))
	if err != nil {
		var rl *counter.RateLimitError
		if errors.As(err, &rl) {
			c.Header("Retry-After", strconv.Itoa(rl.RetryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Analytics rate limit exceeded",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Analytics unavailable",
		})
		return
	}

	var lastUpdated int64
	if !a.LastUpdated.IsZero() {
		lastUpdated = a.LastUpdated.UnixMilli()
	}
	ok(c, gin.H{
		"success": true,
		"analytics": gin.H{
			"currentCount": a.Total,
			"growth24h":    a.Last24h,
			"growthRate":   a.GrowthRate,
			"storage":      a.Storage,
			"cacheStatus": gin.H{
				"lastUpdated": lastUpdated,
				"age":         a.CacheAge.Milliseconds(),
				"isValid":     a.CacheValid,
			},
		},
	})
}
