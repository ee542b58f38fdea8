package router

import (
	"github.com/gin-gonic/gin"

	"github.com/fleetsight/pulse/internal/http/handler"
)

func StatsRouter(router *gin.RouterGroup, handler *handler.StatsHandler) {
	router.GET("", handler.MachineStats)
	router.GET("/top-defect-lines", handler.TopDefectLines)
	router.GET("/defects-total", handler.DefectsTotal)
}
