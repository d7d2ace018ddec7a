package v1

import (
	"github.com/gin-gonic/gin"

	"meet-server/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")
	group.GET("/meetings", r.handlers.Meeting.List)
	group.POST("/meetings", r.handlers.Meeting.Create)
	group.DELETE("/meetings/:id", r.handlers.Meeting.Teardown)
	group.GET("/meetings/past", r.handlers.Meeting.ListPast)
}
