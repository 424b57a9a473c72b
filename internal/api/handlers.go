package api

import (
	"net/http"

	"habitloop/internal/auth"
	"habitloop/internal/config"
	"habitloop/internal/llm"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GET /config
func configHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only return non-sensitive config fields
		c.JSON(http.StatusOK, gin.H{
			"server": gin.H{
				"host":    cfg.Server.Host,
				"port":    cfg.Server.Port,
				"subpath": cfg.Server.Subpath,
			},
			"generation_model": gin.H{
				"name": cfg.GenerationModel.Name,
			},
			"pipeline": cfg.Pipeline,
		})
	}
}

// GET /llm/metrics
func llmMetricsHandler(manager *llm.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.GetMetrics())
	}
}

// GET /sessions/online
func onlineSessionsHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := auth.ActiveSessionCount(rdb)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "failed to count sessions"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"online": count})
	}
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userId")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
