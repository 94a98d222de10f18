// Package api exposes the menu planning service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/orchestrator"
	"github.com/menuforge/menuforge/pkg/telemetry"
)

// Planner is the orchestrator surface the handlers depend on.
type Planner interface {
	Submit(ctx context.Context, req *menu.Request) (*orchestrator.SubmitResult, error)
	Poll(ctx context.Context, taskID string) (*orchestrator.TaskRecord, error)
}

// CatalogSource supplies the dish catalog when a request omits it.
type CatalogSource interface {
	Fetch(ctx context.Context, restaurantID string) []menu.Dish
}

// HealthChecker reports store reachability for the health endpoint.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Server wires the handlers into a gin engine.
type Server struct {
	planner Planner
	catalog CatalogSource
	health  HealthChecker
	metrics *telemetry.Metrics
	log     *telemetry.Logger
}

// NewServer builds the HTTP layer. catalog and health may be nil when
// the deployment does not use an upstream catalog or a store.
func NewServer(planner Planner, catalog CatalogSource, health HealthChecker, metrics *telemetry.Metrics, log *telemetry.Logger) *Server {
	if log == nil {
		log = telemetry.NopLogger()
	}
	return &Server{
		planner: planner,
		catalog: catalog,
		health:  health,
		metrics: metrics,
		log:     log.Component("api"),
	}
}

// Router returns the configured gin engine.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.POST("/plans", s.handleSubmit)
	v1.GET("/plans/:id", s.handlePoll)

	return r
}

// submitRequest is the POST body. RestaurantID selects the upstream
// catalog when the dishes are not inlined.
type submitRequest struct {
	menu.Request
	RestaurantID string `json:"restaurant_id,omitempty"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var body submitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, menu.NewValidationError("malformed request body", err))
		return
	}

	if len(body.Dishes) == 0 && s.catalog != nil {
		body.Dishes = s.catalog.Fetch(c.Request.Context(), body.RestaurantID)
	}
	if len(body.Dishes) == 0 {
		s.writeError(c, menu.NewValidationError("no dishes supplied and catalog lookup returned nothing", nil).
			WithCode(menu.ErrCodeEmptyCatalog))
		return
	}

	res, err := s.planner.Submit(c.Request.Context(), &body.Request)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if res.Status == orchestrator.StatusSuccess {
		c.JSON(http.StatusOK, gin.H{
			"status": res.Status,
			"result": res.Plans,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id":    res.TaskID,
		"status":     res.Status,
		"result_url": "/api/v1/plans/" + res.TaskID,
	})
}

func (s *Server) handlePoll(c *gin.Context) {
	rec, err := s.planner.Poll(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil && !s.health.Healthy(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps a classified error to its transport status. Unknown
// errors are reported as internal without leaking detail.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case menu.IsValidation(err):
		status = http.StatusBadRequest
	case menu.IsInfeasible(err):
		status = http.StatusUnprocessableEntity
	case menu.IsConflict(err):
		status = http.StatusConflict
	case menu.IsOverloaded(err):
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", "5")
	case menu.IsConnectivity(err):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	body := gin.H{"error": err.Error()}
	var merr *menu.Error
	if errors.As(err, &merr) && merr.Code != "" {
		body["code"] = merr.Code
	}
	c.JSON(status, body)
}
