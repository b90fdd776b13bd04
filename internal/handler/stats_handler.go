package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/travel-journal-go/internal/middleware"
	"github.com/jengzang/travel-journal-go/internal/models"
	"github.com/jengzang/travel-journal-go/internal/service"
	"github.com/jengzang/travel-journal-go/internal/stats"
	"github.com/jengzang/travel-journal-go/internal/tracking"
	"github.com/jengzang/travel-journal-go/pkg/response"
)

// StatsHandler handles HTTP requests for statistics, steps and achievements
type StatsHandler struct {
	registry *service.Registry
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(registry *service.Registry) *StatsHandler {
	return &StatsHandler{registry: registry}
}

type stepsRequest struct {
	Steps int `json:"steps" binding:"required,min=1,max=100000"`
}

type motionRequest struct {
	Samples []tracking.MotionSample `json:"samples" binding:"required,min=1,max=1000,dive"`
}

type historyResponse struct {
	Days    []models.DailyStats  `json:"days"`
	Summary stats.HistorySummary `json:"summary"`
}

type motionResponse struct {
	Steps int         `json:"steps"`
	Stats interface{} `json:"stats"`
}

// GetStats handles GET /api/v1/stats
func (h *StatsHandler) GetStats(c *gin.Context) {
	response.Success(c, h.registry.Journal(middleware.UserID(c)).Stats())
}

// GetDailyStats handles GET /api/v1/stats/daily/:date
func (h *StatsHandler) GetDailyStats(c *gin.Context) {
	daily, err := h.registry.DailyStats(middleware.UserID(c), c.Param("date"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDate):
			response.BadRequest(c, err.Error())
		case service.IsNotFound(err):
			response.NotFound(c, "No stats recorded for this date")
		default:
			response.InternalError(c, err.Error())
		}
		return
	}

	response.Success(c, daily)
}

// GetHistory handles GET /api/v1/stats/history?limit=30
func (h *StatsHandler) GetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if err != nil || limit <= 0 {
		response.BadRequest(c, "Invalid limit parameter")
		return
	}

	days, err := h.registry.History(middleware.UserID(c), limit)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	if days == nil {
		days = []models.DailyStats{}
	}
	response.Success(c, historyResponse{Days: days, Summary: stats.Summarize(days)})
}

// AddSteps handles POST /api/v1/stats/steps
func (h *StatsHandler) AddSteps(c *gin.Context) {
	var req stepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid steps: "+err.Error())
		return
	}

	response.Success(c, h.registry.Journal(middleware.UserID(c)).AddSteps(req.Steps))
}

// FeedMotion handles POST /api/v1/motion/samples
func (h *StatsHandler) FeedMotion(c *gin.Context) {
	var req motionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid motion samples: "+err.Error())
		return
	}

	j := h.registry.Journal(middleware.UserID(c))
	steps := j.FeedMotion(req.Samples)
	response.Success(c, motionResponse{Steps: steps, Stats: j.Snapshot()})
}

// GetAchievements handles GET /api/v1/achievements
func (h *StatsHandler) GetAchievements(c *gin.Context) {
	response.Success(c, h.registry.Journal(middleware.UserID(c)).Achievements())
}
