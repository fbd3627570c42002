package http

import (
	"net/http"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/api/http/handler"
	"github.com/EternisAI/soc-agent-sync/internal/api/http/middleware"
	"github.com/EternisAI/soc-agent-sync/internal/assignments"
	"github.com/EternisAI/soc-agent-sync/internal/auth"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type Services struct {
	Agents      *agents.Service
	Assignments *assignments.Service
	Syncer      handler.Syncer
	JWTSecret   string
	SyncLimiter *rate.Limiter
	Metrics     http.Handler
}

// NewSyncLimiter returns the limiter for manual sync requests, or nil when
// limiting is disabled.
func NewSyncLimiter(config Config) *rate.Limiter {
	if config.SyncRateLimit <= 0 {
		return nil
	}
	burst := config.SyncRateBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(config.SyncRateLimit), burst)
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	handler.RegisterValidation()
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)

	if srvs.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(srvs.Metrics))
	}

	api := engine.Group("/")
	api.Use(middleware.JWTAuth(srvs.JWTSecret))

	if srvs.Agents != nil {
		agentsHandler := handler.NewAgentsHandler(srvs.Agents)
		api.POST("/register-agent", middleware.RequireCapability(auth.CapManageAgents), agentsHandler.RegisterAgent)
		api.GET("/agents", agentsHandler.ListAgents)
		api.GET("/agents/:externalId", agentsHandler.GetAgent)
		api.PUT("/agents/:externalId/owner", middleware.RequireCapability(auth.CapManageAgents), agentsHandler.SetOwner)
		api.GET("/user-agents", agentsHandler.UserAgents)
	}

	if srvs.Assignments != nil {
		assignmentsHandler := handler.NewAssignmentsHandler(srvs.Assignments)
		api.POST("/assign-agent-to-user", middleware.RequireCapability(auth.CapManageAssignments), assignmentsHandler.AssignAgent)
		api.GET("/assigned-agents", assignmentsHandler.AssignedAgents)
		api.GET("/assigned-agents-details", assignmentsHandler.AssignedAgentsDetails)
	}

	if srvs.Syncer != nil {
		syncHandler := handler.NewSyncHandler(srvs.Syncer)
		api.GET("/sync-wazuh-agents",
			middleware.RequireCapability(auth.CapTriggerSync),
			middleware.RateLimit(srvs.SyncLimiter),
			syncHandler.Trigger)
	}
}
