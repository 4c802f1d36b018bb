package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"reviewking/agent/internal/agent"
)

// StreamProgress sends Server-Sent Events while a bulk import runs. The
// client connects before (or during) the import and receives events until
// the import reaches a terminal state or the connection is closed.
func (h *Handler) StreamProgress(c *gin.Context) {
	if h.agent.Snapshot() == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}

	events, cancel := h.agent.Progress().Subscribe()
	defer cancel()

	// Set SSE headers
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Flush()

	ctx := c.Request.Context()
	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			// Comment line keeps intermediaries from closing the stream.
			fmt.Fprintf(c.Writer, ": heartbeat\n\n")
			c.Writer.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.sendSSE(c, "progress", ev)
			if ev.Status == agent.ProgressFinished || ev.Status == agent.ProgressFailed {
				return
			}
		}
	}
}

// sendSSE writes a single SSE event.
func (h *Handler) sendSSE(c *gin.Context, eventName string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.log.Error().Err(err).Msg("sse marshal failed")
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\n", eventName)
	fmt.Fprintf(c.Writer, "data: %s\n\n", jsonData)
	c.Writer.Flush()
}
