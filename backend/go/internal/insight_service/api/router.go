package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker 是各数据库客户端健康检查的统一签名。
type HealthChecker func(ctx context.Context) error

// AuthMiddleware is a placeholder for the actual authentication middleware.
// In a real application, this would validate a JWT and set the "userID" in the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// For demonstration purposes, we'll use a static user ID.
		// Replace this with actual token validation logic.
		c.Set("userID", "user-12345")
		c.Next()
	}
}

// SetupRouter 配置和返回一个 Gin 引擎实例。
// checkers 以组件名为键，用于 /health 端点逐个探测依赖。
func SetupRouter(h *Handler, checkers map[string]HealthChecker) *gin.Engine {
	// 使用默认中间件 (logger, recovery) 创建一个 Gin 引擎。
	r := gin.Default()

	r.GET("/health", healthHandler(checkers))

	apiV1 := r.Group("/api/v1")
	{
		insights := apiV1.Group("/insights")
		insights.Use(AuthMiddleware())
		{
			insights.POST("/analyze", h.AnalyzeEvent)
			insights.POST("/goal-impact", h.MapGoalImpact)
			insights.GET("/goal-impact/summary", h.GoalImpactSummary)
			insights.POST("/simulate", h.Simulate)
			insights.POST("/simulate/quick", h.QuickSimulate)
			insights.POST("/save", h.SaveInsight)
		}

		goals := apiV1.Group("/goals")
		goals.Use(AuthMiddleware())
		{
			goals.POST("", h.CreateGoal)
			goals.GET("/:id/insights", h.GoalInsights)
		}
	}

	return r
}

// healthHandler 逐个探测依赖组件，任一失败时返回 503。
func healthHandler(checkers map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checkers))
		for name, check := range checkers {
			if err := check(ctx); err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				components[name] = "ok"
			}
		}

		c.JSON(status, gin.H{"status": http.StatusText(status), "components": components})
	}
}
