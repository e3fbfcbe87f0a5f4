package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/http/response"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/scheduler"
)

type SchedulerHandler struct {
	log      *logger.Logger
	schedule *scheduler.Schedule
	interval time.Duration
	now      func() time.Time
}

func NewSchedulerHandler(log *logger.Logger, schedule *scheduler.Schedule) *SchedulerHandler {
	return &SchedulerHandler{
		log:      log.With("handler", "SchedulerHandler"),
		schedule: schedule,
		interval: time.Second,
		now:      time.Now,
	}
}

// GET /api/scheduler/countdown
func (h *SchedulerHandler) Countdown(c *gin.Context) {
	response.RespondOK(c, h.schedule.Countdown(h.now()))
}

// GET /api/scheduler/countdown/stream
//
// Each event is computed from the wall clock, so a slow client never drifts.
func (h *SchedulerHandler) CountdownStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	c.SSEvent("countdown", h.schedule.Countdown(h.now()))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			c.SSEvent("countdown", h.schedule.Countdown(h.now()))
			return true
		}
	})
	h.log.Debug("Countdown stream closed")
}
