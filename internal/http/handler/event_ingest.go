package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetsight/pulse/internal/http/dto"
	"github.com/fleetsight/pulse/internal/model"
	"github.com/fleetsight/pulse/internal/service"
)

type EventIngestHandler struct {
	service service.IngestService
}

func NewEventIngestHandler(service service.IngestService) *EventIngestHandler {
	return &EventIngestHandler{service: service}
}

// IngestBatch handles POST /events/batch. Partial success is the norm: the
// response is always 200 with per-event counters and rejections, unless the
// request body itself is malformed.
func (h *EventIngestHandler) IngestBatch(c *gin.Context) {
	ctx := c.Request.Context()

	var req []dto.MachineEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid batch payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := make([]*model.MachineEvent, len(req))
	for i := range req {
		events[i] = req[i].ToModel()
	}

	result := h.service.ProcessBatch(ctx, events)
	c.JSON(http.StatusOK, dto.NewBatchIngestResponse(result))
}
