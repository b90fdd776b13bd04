package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/travel-journal-go/internal/middleware"
	"github.com/jengzang/travel-journal-go/internal/models"
	"github.com/jengzang/travel-journal-go/internal/service"
	"github.com/jengzang/travel-journal-go/pkg/response"
)

// PlaceHandler handles HTTP requests for hotspot visits and memories
type PlaceHandler struct {
	registry *service.Registry
}

// NewPlaceHandler creates a new place handler
func NewPlaceHandler(registry *service.Registry) *PlaceHandler {
	return &PlaceHandler{registry: registry}
}

type visitResponse struct {
	// Counted is false for a hotspot visited before
	Counted bool                 `json:"counted"`
	Stats   models.StatsSnapshot `json:"stats"`
}

// Visit handles POST /api/v1/visits
func (h *PlaceHandler) Visit(c *gin.Context) {
	var v models.Visit
	if err := c.ShouldBindJSON(&v); err != nil {
		response.BadRequest(c, "Invalid visit: "+err.Error())
		return
	}

	j := h.registry.Journal(middleware.UserID(c))
	counted := j.Visit(v)
	resp := visitResponse{Counted: counted, Stats: j.Snapshot()}
	if counted {
		response.Created(c, resp)
		return
	}
	c.JSON(http.StatusOK, response.Response{Code: 0, Message: "already visited", Data: resp})
}

// ListVisits handles GET /api/v1/visits
func (h *PlaceHandler) ListVisits(c *gin.Context) {
	visits, err := h.registry.Visits(middleware.UserID(c))
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if visits == nil {
		visits = []models.Visit{}
	}
	response.Success(c, visits)
}

// CreateMemory handles POST /api/v1/memories
func (h *PlaceHandler) CreateMemory(c *gin.Context) {
	var req models.CreateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid memory: "+err.Error())
		return
	}

	response.Created(c, h.registry.Journal(middleware.UserID(c)).SaveMemory(req))
}

// ListMemories handles GET /api/v1/memories?limit=50
func (h *PlaceHandler) ListMemories(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		response.BadRequest(c, "Invalid limit parameter")
		return
	}

	memories, err := h.registry.Memories(middleware.UserID(c), limit)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if memories == nil {
		memories = []models.Memory{}
	}
	response.Success(c, memories)
}
