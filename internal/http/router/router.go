package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetsight/pulse/internal/http/handler"
	"github.com/fleetsight/pulse/internal/service"
)

// Pinger is the dependency probe behind the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	StatsDefaultLimit int
}

func SetupRoutes(router *gin.Engine, services *service.Services, db Pinger, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	ingestHandler := handler.NewEventIngestHandler(services.Ingest())
	EventRouter(router.Group("/events"), ingestHandler)

	statsHandler := handler.NewStatsHandler(services.Stats(), cfg.StatsDefaultLimit)
	StatsRouter(router.Group("/stats"), statsHandler)
}
