package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	analyst "github.com/huynd2174/Social-Network-Analyst--sub000"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

const serviceName = "social-network-analyst"

// HealthHandler handles health check requests
type HealthHandler struct {
	engine  *analyst.Engine
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(e *analyst.Engine) *HealthHandler {
	return &HealthHandler{engine: e, started: time.Now()}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessCheck handles GET /ready. The service is ready once a graph is
// loaded and its indexes are consistent.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	response := gin.H{
		"status":    "ready",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	checks := gin.H{"graph": h.graphCheck()}
	response["checks"] = checks

	if checks["graph"].(gin.H)["status"] != "healthy" {
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// DetailedHealthCheck handles GET /health/detailed - comprehensive health information
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	startTime := time.Now()
	response := gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": Version,
		"build_info": gin.H{
			"git_commit": GitCommit,
			"build_time": BuildTime,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"environment": gin.H{
			"go_version": GoVersion,
		},
	}

	graphStatus := h.graphCheck()
	if h.engine != nil {
		stats := h.engine.Store().Stats()
		graphStatus["version"] = stats.Version
		graphStatus["entities"] = stats.Entities
		graphStatus["relationships"] = stats.Relationships
		graphStatus["aliases"] = stats.Aliases
	}

	systemMetrics := h.getSystemMetrics()
	response["checks"] = gin.H{
		"graph": graphStatus,
		"system": gin.H{
			"status":       "healthy",
			"memory_usage": systemMetrics.MemoryUsage,
			"goroutines":   systemMetrics.Goroutines,
			"gc_cycles":    systemMetrics.GCCycles,
			"heap_objects": systemMetrics.HeapObjects,
			"stack_usage":  systemMetrics.StackUsage,
		},
	}
	response["metrics"] = gin.H{"response_time_ms": time.Since(startTime).Milliseconds()}

	if graphStatus["status"] != "healthy" {
		response["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) graphCheck() gin.H {
	if h.engine == nil {
		return gin.H{"status": "unhealthy", "error": "engine not initialized"}
	}
	start := time.Now()
	if err := h.engine.Loader().CheckInvariants(); err != nil {
		return gin.H{"status": "unhealthy", "error": err.Error()}
	}
	return gin.H{"status": "healthy", "duration_ms": time.Since(start).Milliseconds()}
}

// SystemMetrics holds system runtime metrics
type SystemMetrics struct {
	MemoryUsage string `json:"memory_usage"`
	Goroutines  int    `json:"goroutines"`
	GCCycles    uint32 `json:"gc_cycles"`
	HeapObjects uint64 `json:"heap_objects"`
	StackUsage  string `json:"stack_usage"`
}

// getSystemMetrics collects current system runtime metrics
func (h *HealthHandler) getSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f MB", float64(m.Alloc)/(1024*1024)),
		Goroutines:  runtime.NumGoroutine(),
		GCCycles:    m.NumGC,
		HeapObjects: m.HeapObjects,
		StackUsage:  fmt.Sprintf("%.2f MB", float64(m.StackSys)/(1024*1024)),
	}
}
