package api

import (
	"habitloop/internal/auth"
	"habitloop/internal/config"
	"habitloop/internal/insight"
	"habitloop/internal/llm"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func SetupRouter(cfg *config.Config, rdb *redis.Client, pipeline *insight.Pipeline, manager *llm.Manager) *gin.Engine {
	r := gin.Default()
	subpath := cfg.Server.Subpath // e.g. "/habitloop" or any custom path, always starts with '/'

	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler)
		group.GET("/config", configHandler(cfg))

		group.POST("/insights/generate", auth.AuthMiddleware(cfg, rdb), GenerateInsightsHandler(pipeline))
		group.GET("/ws/insights", WSInsightHandler(cfg, pipeline))

		group.GET("/llm/metrics", auth.AuthMiddleware(cfg, rdb), llmMetricsHandler(manager))
		group.GET("/sessions/online", onlineSessionsHandler(rdb))
	}
	return r
}
