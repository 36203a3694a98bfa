package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/relocation-backend/internal/http/response"
	"github.com/yungbote/relocation-backend/internal/platform/ctxutil"
	"github.com/yungbote/relocation-backend/internal/realtime"
	"github.com/yungbote/relocation-backend/internal/services"
)

const defaultHeartbeat = 15 * time.Second

// EventsHandler streams the caller's profile events as server-sent events.
type EventsHandler struct {
	facts     services.FactStore
	hub       *realtime.Hub
	heartbeat time.Duration
}

func NewEventsHandler(facts services.FactStore, hub *realtime.Hub) *EventsHandler {
	return &EventsHandler{facts: facts, hub: hub, heartbeat: defaultHeartbeat}
}

// WithHeartbeat sets the keep-alive comment interval.
func (h *EventsHandler) WithHeartbeat(d time.Duration) *EventsHandler {
	if d > 0 {
		h.heartbeat = d
	}
	return h
}

// GET /api/profile/events
func (h *EventsHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.facts.GetOrCreateProfile(ctx, ctxutil.ExternalUserID(ctx))
	if err != nil {
		response.Error(c, err)
		return
	}
	sub := h.hub.Subscribe(realtime.ProfileChannel(p.ID), realtime.DefaultSubscriberBuffer)
	defer h.hub.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			_, _ = c.Writer.WriteString(": ping\n\n")
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			c.SSEvent(string(ev.Type), ev)
		}
		c.Writer.Flush()
	}
}
