package server

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const keepAliveEvery = 15 * time.Second

// StreamEvents handles GET /api/events. One metrics frame is sent after
// every sampler tick; idle connections get a ping.
func (h *Handlers) StreamEvents(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticks, unsubscribe := h.mon.Scheduler().Subscribe()
	defer unsubscribe()

	keepAlive := time.NewTicker(keepAliveEvery)
	defer keepAlive.Stop()

	ctx := c.Request.Context()

	// first frame straight away so clients render before the next tick
	if !h.sendMetrics(c) {
		return
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ticks:
			return h.sendMetrics(c)
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (h *Handlers) sendMetrics(c *gin.Context) bool {
	data, err := json.Marshal(h.snapshot())
	if err != nil {
		log.Errorf("failed to encode metrics frame: %v", err)
		return false
	}
	c.SSEvent("metrics", string(data))
	c.Writer.Flush()
	return true
}
