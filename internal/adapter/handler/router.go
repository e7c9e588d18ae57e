package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/johnquangdev/warroom/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/warroom/pkg/config"
	"github.com/johnquangdev/warroom/pkg/jwt"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	jwtManager     *jwt.Manager
	meetingHandler *Meeting
	cronHandler    *Cron
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, jwtManager *jwt.Manager, meetingHandler *Meeting, cronHandler *Cron) *Router {
	return &Router{
		cfg:            cfg,
		jwtManager:     jwtManager,
		meetingHandler: meetingHandler,
		cronHandler:    cronHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupMeetingRoutes(v1)
	rt.setupCronRoutes(v1)
}

// setupMeetingRoutes configures meeting orchestration routes
func (rt *Router) setupMeetingRoutes(g *echo.Group) {
	meetingGroup := g.Group("/meetings", middleware.EchoAuth(rt.jwtManager))

	meetingGroup.POST("", rt.meetingHandler.Create)
	meetingGroup.GET("", rt.meetingHandler.List)
	meetingGroup.GET("/:id", rt.meetingHandler.Get)
	meetingGroup.POST("/:id/start", rt.meetingHandler.Start)
	meetingGroup.POST("/:id/pause", rt.meetingHandler.Pause)
	meetingGroup.POST("/:id/turn", rt.meetingHandler.Turn)
	meetingGroup.POST("/:id/messages", rt.meetingHandler.PostMessage)
	meetingGroup.GET("/:id/messages", rt.meetingHandler.ListMessages)
	meetingGroup.POST("/:id/end", rt.meetingHandler.End)
	meetingGroup.GET("/:id/minutes", rt.meetingHandler.GetMinutes)
	meetingGroup.POST("/:id/minutes/regenerate", rt.meetingHandler.RegenerateMinutes)
}

// setupCronRoutes configures routes for the external scheduler
func (rt *Router) setupCronRoutes(g *echo.Group) {
	cronGroup := g.Group("/cron", middleware.CronAuth(rt.cfg.Server.CronSecret))

	cronGroup.POST("/meetings", rt.cronHandler.Sweep)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
