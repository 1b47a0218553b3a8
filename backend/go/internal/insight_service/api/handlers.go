package api

import (
	"errors"
	"net/http"
	"strconv"

	"Minerva/backend/go/internal/goal"
	"Minerva/backend/go/internal/insight_service/analyzer"
	"Minerva/backend/go/internal/insight_service/service"
	"Minerva/backend/go/internal/models"

	"github.com/gin-gonic/gin"
)

// Handler 封装了洞察服务所有 API endpoint 的处理函数。
type Handler struct {
	service *service.InsightService
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(s *service.InsightService) *Handler {
	return &Handler{service: s}
}

// userID 从认证中间件注入的上下文中取出当前用户ID。
func userID(c *gin.Context) string {
	if v, exists := c.Get("userID"); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// AnalyzeEventRequest 定义了事件分析请求的 JSON 结构。
type AnalyzeEventRequest struct {
	Event          string  `json:"event" binding:"required"`
	MaxHops        int     `json:"max_hops,omitempty"`
	IncludeNeutral bool    `json:"include_neutral,omitempty"`
	MinScore       float64 `json:"min_score,omitempty"`
}

// AnalyzeEvent 处理事件分析请求。
func (h *Handler) AnalyzeEvent(c *gin.Context) {
	var req AnalyzeEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	implications, err := h.service.AnalyzeEvent(c.Request.Context(), userID(c), analyzer.AnalyzeRequest{
		Event:          req.Event,
		MaxHops:        req.MaxHops,
		IncludeNeutral: req.IncludeNeutral,
		MinScore:       req.MinScore,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"implications": implications, "count": len(implications)})
}

// MapGoalImpactRequest 定义了目标影响映射请求的 JSON 结构。
type MapGoalImpactRequest struct {
	Implications []*models.Implication `json:"implications" binding:"required"`
}

// MapGoalImpact 处理目标影响映射请求。
func (h *Handler) MapGoalImpact(c *gin.Context) {
	var req MapGoalImpactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	impacts, err := h.service.MapGoalImpact(c.Request.Context(), userID(c), req.Implications)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"impacts": impacts, "count": len(impacts)})
}

// GoalImpactSummary 返回所有 active 目标的净压力汇总。
func (h *Handler) GoalImpactSummary(c *gin.Context) {
	summary, err := h.service.GoalImpactSummary(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GoalInsights 返回单个目标及影响它的近期洞察。
func (h *Handler) GoalInsights(c *gin.Context) {
	goalID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的目标 ID 格式"})
		return
	}

	limit := 10
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	result, err := h.service.GoalInsights(c.Request.Context(), userID(c), uint(goalID), limit)
	if err != nil {
		if errors.Is(err, goal.ErrGoalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "目标不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// CreateGoalRequest 定义了目标创建请求的 JSON 结构。
type CreateGoalRequest struct {
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description,omitempty"`
	Priority    int                    `json:"priority,omitempty" binding:"omitempty,min=1,max=5"`
	Category    string                 `json:"category,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// CreateGoal 处理目标创建请求。
func (h *Handler) CreateGoal(c *gin.Context) {
	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g := &models.Goal{
		UserID:      userID(c),
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
		Metadata:    req.Metadata,
	}
	if g.Priority == 0 {
		g.Priority = 3
	}
	if err := h.service.CreateGoal(c.Request.Context(), g); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "创建成功", "goal_id": g.ID})
}

// Simulate 处理完整的情景模拟请求。
func (h *Handler) Simulate(c *gin.Context) {
	var req models.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Simulate(c.Request.Context(), userID(c), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// save=true 时顺带持久化模拟结果。
	if c.Query("save") == "true" {
		if id, err := h.service.SaveSimulation(c.Request.Context(), userID(c), result); err == nil {
			c.JSON(http.StatusOK, gin.H{"result": result, "insight_id": id})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// QuickSimulateRequest 定义了快速模拟请求的 JSON 结构。
type QuickSimulateRequest struct {
	Question string `json:"question" binding:"required"`
}

// QuickSimulate 处理轻量问答式模拟请求。
func (h *Handler) QuickSimulate(c *gin.Context) {
	var req QuickSimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.QuickSimulate(c.Request.Context(), userID(c), req.Question)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SaveInsightRequest 定义了洞察保存请求的 JSON 结构。
type SaveInsightRequest struct {
	Implication *models.Implication `json:"implication" binding:"required"`
}

// SaveInsight 将一条判断显式持久化为洞察记录。
func (h *Handler) SaveInsight(c *gin.Context) {
	var req SaveInsightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Implication.UserID = userID(c)

	id, err := h.service.SaveImplication(c.Request.Context(), req.Implication)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "保存成功", "insight_id": id})
}
