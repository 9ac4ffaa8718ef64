package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/ngenohkevin/hivedeck-monitor/internal/cache"
	"github.com/ngenohkevin/hivedeck-monitor/internal/monitor"
	"github.com/ngenohkevin/hivedeck-monitor/internal/process"
	"github.com/ngenohkevin/hivedeck-monitor/internal/scheduler"
	"github.com/ngenohkevin/hivedeck-monitor/internal/series"
	"github.com/ngenohkevin/hivedeck-monitor/internal/system"
	"github.com/ngenohkevin/hivedeck-monitor/internal/version"
)

const (
	defaultProcessLimit = 50
	tokenTTL            = 24 * time.Hour
)

// Handlers holds all HTTP handlers
type Handlers struct {
	mon     *monitor.Monitor
	hosts   *cache.HostCache
	auth    *AuthService
	started time.Time
}

// NewHandlers creates handlers reading from mon
func NewHandlers(mon *monitor.Monitor, hosts *cache.HostCache, auth *AuthService) *Handlers {
	return &Handlers{
		mon:     mon,
		hosts:   hosts,
		auth:    auth,
		started: time.Now(),
	}
}

// ChannelValue is the latest reading of one channel
type ChannelValue struct {
	Name  string   `json:"name"`
	Unit  string   `json:"unit"`
	Value *float64 `json:"value"`
}

// ChannelHistory is the recorded window of one channel
type ChannelHistory struct {
	Name     string    `json:"name"`
	Unit     string    `json:"unit"`
	Capacity int       `json:"capacity"`
	Values   []float64 `json:"values"`
	Scale    float64   `json:"scale"`
}

// MetricsSnapshot is the payload of GET /api/metrics and of SSE frames
type MetricsSnapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	Interface string         `json:"interface"`
	Channels  []ChannelValue `json:"channels"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   version.Version,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

// GetInfo handles GET /api/info
func (h *Handlers) GetInfo(c *gin.Context) {
	info, err := h.hosts.Info(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hostname":      info.Hostname,
		"os":            info.OS,
		"platform":      info.Platform,
		"kernel":        info.KernelVersion,
		"arch":          info.KernelArch,
		"uptime":        info.UptimeHuman,
		"logical_cores": info.LogicalCores,
		"interface":     h.mon.Interface(),
		"agent":         version.Name,
		"version":       version.Version,
	})
}

// GetStatus handles GET /api/status
func (h *Handlers) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.mon.Status())
}

// GetMetrics handles GET /api/metrics
func (h *Handlers) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot())
}

// GetHistory handles GET /api/metrics/history
func (h *Handlers) GetHistory(c *gin.Context) {
	out := make([]ChannelHistory, 0, len(system.Channels))
	for _, ch := range system.Channels {
		out = append(out, h.history(ch))
	}
	c.JSON(http.StatusOK, gin.H{"channels": out})
}

// GetChannel handles GET /api/metrics/:channel
func (h *Handlers) GetChannel(c *gin.Context) {
	ch, ok := system.ParseChannel(c.Param("channel"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel: " + c.Param("channel")})
		return
	}
	c.JSON(http.StatusOK, h.history(ch))
}

// ListProcesses handles GET /api/processes
func (h *Handlers) ListProcesses(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultProcessLimit)))
	if err != nil || limit <= 0 {
		limit = defaultProcessLimit
	}

	records := h.mon.Registry().CurrentRecords()
	switch c.DefaultQuery("sort", "memory") {
	case "memory":
		process.SortByMemory(records)
	case "cpu":
		process.SortByCPU(records)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "sort must be memory or cpu"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     len(records),
		"processes": process.Top(records, limit),
	})
}

// RefreshProcesses handles POST /api/processes/refresh
func (h *Handlers) RefreshProcesses(c *gin.Context) {
	if err := h.mon.Refresh(c.Request.Context()); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"processes": h.mon.Registry().Len()})
}

// TerminateProcess handles POST /api/processes/:pid/terminate
func (h *Handlers) TerminateProcess(c *gin.Context) {
	pid, err := strconv.ParseInt(c.Param("pid"), 10, 32)
	if err != nil || pid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pid"})
		return
	}

	if !h.mon.Manager().Enabled() {
		c.JSON(http.StatusForbidden, gin.H{"pid": pid, "success": false, "error": process.ErrTerminateDisabled.Error()})
		return
	}

	if err := h.mon.Terminate(c.Request.Context(), int32(pid)); err != nil {
		log.WithField("pid", pid).Warnf("terminate refused: %v", err)
		c.JSON(statusFor(err), gin.H{"pid": pid, "success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pid":     pid,
		"success": true,
		"status":  process.StatusTerminating,
	})
}

// IssueToken handles POST /api/token. Only the API key may mint tokens.
func (h *Handlers) IssueToken(c *gin.Context) {
	if method, _ := c.Get(authMethodKey); method != "api_key" {
		c.JSON(http.StatusForbidden, gin.H{"error": "tokens can only be issued with the API key"})
		return
	}

	token, err := h.auth.GenerateToken("viewer", tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(tokenTTL.Seconds()),
	})
}

func (h *Handlers) snapshot() MetricsSnapshot {
	s := h.mon.Sampler()
	out := MetricsSnapshot{
		Timestamp: time.Now().UTC(),
		Interface: h.mon.Interface(),
		Channels:  make([]ChannelValue, 0, len(system.Channels)),
	}
	for _, ch := range system.Channels {
		cv := ChannelValue{Name: ch.String(), Unit: ch.Unit()}
		if v, ok := s.Latest(ch); ok {
			cv.Value = &v
		}
		out.Channels = append(out.Channels, cv)
	}
	return out
}

func (h *Handlers) history(ch system.Channel) ChannelHistory {
	s := h.mon.Sampler()
	values := s.History(ch)
	return ChannelHistory{
		Name:     ch.String(),
		Unit:     ch.Unit(),
		Capacity: s.Capacity(),
		Values:   values,
		Scale:    series.Scale(values, ch.IsPercent()),
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, process.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, process.ErrAccessDenied),
		errors.Is(err, process.ErrProtected),
		errors.Is(err, process.ErrTerminateDisabled):
		return http.StatusForbidden
	case errors.Is(err, scheduler.ErrNotRunning):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
