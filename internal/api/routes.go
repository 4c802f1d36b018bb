package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"reviewking/agent/internal/agent"
	"reviewking/agent/internal/middleware"
	"reviewking/agent/internal/services"
)

// SetupRoutes registers all HTTP routes on the Gin engine.
func SetupRoutes(
	r *gin.Engine,
	agentSvc *agent.Agent,
	redisSvc *services.RedisClient,
	log zerolog.Logger,
) {
	handler := NewHandler(agentSvc, log)

	r.Use(middleware.CORS())

	api := r.Group("/api")
	// The overlay polls state and steps the cursor, so the budget is
	// looser than a form-submission API would get.
	api.Use(middleware.RateLimit(redisSvc, 120, 60))

	api.GET("/health", handler.HealthCheck)
	api.GET("/products/search", handler.SearchProducts)

	ag := api.Group("/agent")
	ag.POST("/init", handler.InitAgent)
	ag.POST("/close", handler.CloseAgent)
	ag.GET("/state", handler.GetState)
	ag.POST("/heartbeat", handler.Heartbeat)
	ag.POST("/filter", handler.SetFilter)
	ag.POST("/translations", handler.SetTranslations)
	ag.POST("/target", handler.SelectTarget)
	ag.DELETE("/target", handler.ClearTarget)
	ag.POST("/import/current", handler.ImportCurrent)
	ag.POST("/skip", handler.SkipCurrent)
	ag.POST("/next", handler.NextReview)
	ag.POST("/previous", handler.PreviousReview)
	ag.POST("/import/bulk", handler.BulkImport)
	ag.GET("/import/stream", handler.StreamProgress)
}
