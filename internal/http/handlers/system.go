package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lkataba/community-backend/internal/store"
)

// SystemHandler serves the operational endpoints: health, keep-alive, and the
// database connection status.
type SystemHandler struct {
	Sup         *store.Supervisor
	Environment string
	Port        int
	started     time.Time
}

// NewSystemHandler constructs a SystemHandler. Uptime counts from here.
func NewSystemHandler(sup *store.Supervisor, environment string, port int) *SystemHandler {
	return &SystemHandler{
		Sup:         sup,
		Environment: environment,
		Port:        port,
		started:     time.Now(),
	}
}

// Health handles GET /health. It reports process liveness only; a down
// database does not fail the check, since the JSON fallback keeps the site
// serving.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.started).Seconds(),
		"environment": h.Environment,
		"port":        h.Port,
	})
}

// Ping handles GET /ping, the keep-alive probe used by the hosting platform.
func (h *SystemHandler) Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// MongoStatus handles GET /api/mongodb/status, the connection diagnostics
// surface used by the admin console.
func (h *SystemHandler) MongoStatus(c *gin.Context) {
	st := h.Sup.StatusSnapshot()
	out := gin.H{
		"mongodb":   st,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if !st.Connected {
		out["fallback"] = "Using JSON file storage"
	}
	c.JSON(http.StatusOK, out)
}
