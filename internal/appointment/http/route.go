package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	group := g.Group("/appointments")
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)

		group.GET("/code/:code", h.GetByCode)
		group.GET("/email/:email", h.ListByEmail)
		group.GET("/status/:status", h.ListByStatus)
		group.GET("/date/:date", h.ListByDate)
		group.GET("/availability/:date", h.Availability)

		group.PATCH("/:id/confirm", h.Confirm)
		group.PATCH("/:id/cancel", h.Cancel)
		group.PATCH("/:id/complete", h.Complete)
	}
}
