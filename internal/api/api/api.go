package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"ecotrack/cmd/middleware"
	"ecotrack/internal/service"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(middleware.IdentityMiddleware())
	app.Use(cors.Default())
	apiGroup := app.Group("/v1")

	apiGroup.POST("/logs", r.Service.SubmitLog)
	apiGroup.GET("/logs/pending", r.Service.GetPendingLogs)
	apiGroup.POST("/logs/:id/approve", r.Service.ApproveLog)
	apiGroup.POST("/logs/:id/reject", r.Service.RejectLog)
	apiGroup.GET("/users/:id/logs", r.Service.GetUserLogs)

	apiGroup.POST("/events", r.Service.CreateEvent)
	apiGroup.GET("/events", r.Service.GetAllEvents)
	apiGroup.GET("/events/:id", r.Service.GetEvent)
	apiGroup.POST("/events/:id/register", r.Service.RegisterForEvent)

	apiGroup.POST("/scheduler/start", r.Service.StartScheduler)
	apiGroup.POST("/scheduler/stop", r.Service.StopScheduler)
	apiGroup.GET("/scheduler/status", r.Service.SchedulerStatus)
	apiGroup.POST("/scheduler/run", r.Service.RunSchedulerTick)
	apiGroup.PUT("/settings/auto-approval", r.Service.SetAutoApproval)

	return app
}
