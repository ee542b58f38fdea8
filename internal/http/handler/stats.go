package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetsight/pulse/internal/http/dto"
	"github.com/fleetsight/pulse/internal/service"
)

type StatsHandler struct {
	service      service.StatsService
	defaultLimit int
}

func NewStatsHandler(service service.StatsService, defaultLimit int) *StatsHandler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &StatsHandler{service: service, defaultLimit: defaultLimit}
}

// MachineStats handles GET /stats?machineId=&start=&end=. The window is
// half-open: start inclusive, end exclusive.
func (h *StatsHandler) MachineStats(c *gin.Context) {
	ctx := c.Request.Context()

	machineID := c.Query("machineId")
	if machineID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "machineId is required"})
		return
	}

	start, ok := parseInstant(c, "start")
	if !ok {
		return
	}
	end, ok := parseInstant(c, "end")
	if !ok {
		return
	}

	stats, err := h.service.MachineStats(ctx, machineID, start, end)
	if err != nil {
		slog.ErrorContext(ctx, "failed to compute machine stats", "machine_id", machineID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute machine stats"})
		return
	}

	c.JSON(http.StatusOK, dto.NewMachineStatsResponse(stats))
}

// TopDefectLines handles GET /stats/top-defect-lines?from=&to=&limit=.
// An optional factoryId narrows the ranking to that factory's line.
func (h *StatsHandler) TopDefectLines(c *gin.Context) {
	ctx := c.Request.Context()

	from, ok := parseInstant(c, "from")
	if !ok {
		return
	}
	to, ok := parseInstant(c, "to")
	if !ok {
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	lines, err := h.service.TopDefectLines(ctx, from, to, limit, c.Query("factoryId"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to rank defect lines", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rank defect lines"})
		return
	}

	c.JSON(http.StatusOK, dto.NewTopDefectLineResponses(lines))
}

// DefectsTotal handles GET /stats/defects-total: the all-time known-defect
// sum across the fleet.
func (h *StatsHandler) DefectsTotal(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.service.TotalKnownDefects(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to sum defects", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sum defects"})
		return
	}

	c.JSON(http.StatusOK, dto.DefectsTotalResponse{TotalDefects: total})
}

func parseInstant(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an RFC3339 instant"})
		return time.Time{}, false
	}
	return t.UTC(), true
}
