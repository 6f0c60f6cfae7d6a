package server

import (
	"github.com/gin-gonic/gin"
)

const (
	eventChunk = "chunk"
	eventDone  = "done"
	eventError = "error"
)

// startStream commits the event-stream headers. From here on failures are
// reported as an error event, never as an HTTP status.
func startStream(c *gin.Context, conversationID string) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	header.Set("X-Conversation-Id", conversationID)
	c.Status(200)
	c.Writer.Flush()
}

// writeEvent writes one event and flushes it to the client.
func writeEvent(c *gin.Context, name string, data any) {
	c.SSEvent(name, data)
	c.Writer.Flush()
}
