package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/jengzang/travel-journal-go/internal/middleware"
	"github.com/jengzang/travel-journal-go/internal/models"
	"github.com/jengzang/travel-journal-go/internal/service"
	"github.com/jengzang/travel-journal-go/internal/tracking"
	"github.com/jengzang/travel-journal-go/pkg/response"
)

// TrackingHandler handles HTTP requests for live position tracking
type TrackingHandler struct {
	registry *service.Registry
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(registry *service.Registry) *TrackingHandler {
	return &TrackingHandler{registry: registry}
}

type startResponse struct {
	Session tracking.Session `json:"session"`
	// NewSession is false when a recent session was resumed
	NewSession bool            `json:"newSession"`
	Status     tracking.Status `json:"status"`
}

type ingestResponse struct {
	Decisions []tracking.Decision `json:"decisions"`
	Status    tracking.Status     `json:"status"`
}

type errorReport struct {
	Code tracking.ErrorCode `json:"code" binding:"required"`
}

var errMissingCoordinates = errors.New("position requires lat and lng")

// Start handles POST /api/v1/tracking/start
func (h *TrackingHandler) Start(c *gin.Context) {
	j := h.registry.Journal(middleware.UserID(c))
	session, started := j.Start()
	response.Success(c, startResponse{Session: session, NewSession: started, Status: j.Status()})
}

// Stop handles POST /api/v1/tracking/stop
func (h *TrackingHandler) Stop(c *gin.Context) {
	j := h.registry.Journal(middleware.UserID(c))
	j.Stop()
	response.Success(c, j.Status())
}

// IngestPositions handles POST /api/v1/tracking/positions. The body is either
// {"positions": [...]} or a single position object.
func (h *TrackingHandler) IngestPositions(c *gin.Context) {
	positions, err := bindPositions(c)
	if err != nil {
		response.BadRequest(c, "Invalid positions: "+err.Error())
		return
	}

	j := h.registry.Journal(middleware.UserID(c))
	decisions, err := j.IngestPositions(positions)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, ingestResponse{Decisions: decisions, Status: j.Status()})
}

func bindPositions(c *gin.Context) ([]models.Position, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, err
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, err
	}

	if _, ok := keys["positions"]; ok {
		var batch models.PositionBatch
		if err := binding.JSON.BindBody(body, &batch); err != nil {
			return nil, err
		}
		return batch.Positions, nil
	}

	_, hasLat := keys["lat"]
	_, hasLng := keys["lng"]
	if !hasLat || !hasLng {
		return nil, errMissingCoordinates
	}
	var p models.Position
	if err := binding.JSON.BindBody(body, &p); err != nil {
		return nil, err
	}
	return []models.Position{p}, nil
}

// ReportError handles POST /api/v1/tracking/errors
func (h *TrackingHandler) ReportError(c *gin.Context) {
	var req errorReport
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid error report: "+err.Error())
		return
	}

	out, err := h.registry.Journal(middleware.UserID(c)).ReportError(req.Code)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, out)
}

// GetStatus handles GET /api/v1/tracking/status
func (h *TrackingHandler) GetStatus(c *gin.Context) {
	response.Success(c, h.registry.Journal(middleware.UserID(c)).Status())
}

// GetRoute handles GET /api/v1/tracking/route
func (h *TrackingHandler) GetRoute(c *gin.Context) {
	response.Success(c, h.registry.Journal(middleware.UserID(c)).Route())
}

// GetRouteGeoJSON handles GET /api/v1/tracking/route/geojson?simplify=<meters>
func (h *TrackingHandler) GetRouteGeoJSON(c *gin.Context) {
	tolerance, err := strconv.ParseFloat(c.DefaultQuery("simplify", "0"), 64)
	if err != nil || tolerance < 0 {
		response.BadRequest(c, "Invalid simplify parameter")
		return
	}

	feature := h.registry.Journal(middleware.UserID(c)).RouteFeature(tolerance)
	if feature == nil {
		response.NotFound(c, "Route has fewer than two points")
		return
	}

	data, err := feature.MarshalJSON()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}
