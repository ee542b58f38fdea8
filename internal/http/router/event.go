package router

import (
	"github.com/gin-gonic/gin"

	"github.com/fleetsight/pulse/internal/http/handler"
)

func EventRouter(router *gin.RouterGroup, handler *handler.EventIngestHandler) {
	router.POST("/batch", handler.IngestBatch)
}
