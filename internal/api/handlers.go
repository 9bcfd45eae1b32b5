package api

import (
	"context"
	"net/http"

	"github.com/voxhall/ignition/internal/orchestrator"

	"github.com/gin-gonic/gin"
)

// orchestratorService is the subset of *orchestrator.Orchestrator used by the
// HTTP handlers. Declaring it as an interface allows test doubles to be injected.
type orchestratorService interface {
	Prepare(ctx context.Context) (*orchestrator.RunResult, error)
	DeepHealth(ctx context.Context) map[string]orchestrator.ProbeResult
	IsReady() bool
	IsRunInProgress() bool
	LastResult() *orchestrator.RunResult
}

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	orchestrator orchestratorService
}

// Prepare handles POST /api/v1/prepare.
// It returns 202 immediately when a new prepare run is started, or 409 if one
// is already in progress. Prepare runs the dependency, environment, and
// artifact stages; launch is excluded because exec would replace this server.
func (h *Handler) Prepare(c *gin.Context) {
	if h.orchestrator.IsRunInProgress() {
		c.JSON(http.StatusConflict, gin.H{"status": "in-progress"})
		return
	}
	go func() {
		//nolint:errcheck
		h.orchestrator.Prepare(context.Background()) //nolint:contextcheck
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Health handles GET /health.
// It always returns 200; this is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"mode":   "shallow",
	})
}

// DeepHealth handles GET /health/deep.
// It probes the dependency plus all registered verifiers and returns 200 only
// when every check is OK.
func (h *Handler) DeepHealth(c *gin.Context) {
	probes := h.orchestrator.DeepHealth(c.Request.Context())

	allOK := true
	for _, p := range probes {
		if !p.OK {
			allOK = false
			break
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !allOK {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": probes,
	})
}

// Ready handles GET /ready.
// It returns 200 only after a successful prepare run; 503 otherwise.
func (h *Handler) Ready(c *gin.Context) {
	if h.orchestrator.IsReady() {
		c.JSON(http.StatusOK, gin.H{"ready": true})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
}

// Status handles GET /api/v1/status.
// It returns the last run result, or 404 before the first run.
func (h *Handler) Status(c *gin.Context) {
	result := h.orchestrator.LastResult()
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "no runs yet"})
		return
	}
	c.JSON(http.StatusOK, result)
}
