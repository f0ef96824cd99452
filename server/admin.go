package server

import (
	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/routekit/discovery"
	apperrors "github.com/skillsenselab/routekit/errors"
)

// AdminAPI mounts the registry and health endpoints onto a Gin engine.
type AdminAPI struct {
	discovery *discovery.Service
}

// NewAdminAPI creates the admin surface over a discovery service.
func NewAdminAPI(disc *discovery.Service) *AdminAPI {
	return &AdminAPI{discovery: disc}
}

// RegisterRoutes attaches all admin routes.
func (a *AdminAPI) RegisterRoutes(engine *gin.Engine) {
	services := engine.Group("/services")
	{
		services.GET("", a.listServices)
		services.POST("/:name/instances", a.registerInstance)
		services.DELETE("/:name/instances/:id", a.deregisterInstance)
		services.GET("/:name/instances", a.listInstances)
		services.GET("/:name/best", a.bestInstance)
	}

	health := engine.Group("/health")
	{
		health.GET("/summary", a.healthSummary)
		health.GET("/system", a.systemHealth)
		health.POST("/refresh", a.refresh)
	}
}

type registerRequest struct {
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata"`
}

type registerResponse struct {
	ID string `json:"id"`
}

func (a *AdminAPI) listServices(c *gin.Context) {
	RespondOK(c, a.discovery.ServiceNames())
}

func (a *AdminAPI) registerInstance(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("body", "malformed JSON").WithCause(err))
		return
	}
	if req.URL == "" {
		RespondWithError(c, apperrors.MissingField("url"))
		return
	}

	id := a.discovery.Register(c.Param("name"), discovery.ServiceInstance{
		URL:      req.URL,
		Metadata: req.Metadata,
	})
	RespondCreated(c, registerResponse{ID: id})
}

func (a *AdminAPI) deregisterInstance(c *gin.Context) {
	name, id := c.Param("name"), c.Param("id")
	if !a.discovery.Deregister(name, id) {
		RespondWithError(c, apperrors.NotFound("instance", id).WithDetail("service", name))
		return
	}
	RespondNoContent(c)
}

func (a *AdminAPI) listInstances(c *gin.Context) {
	name := c.Param("name")
	if c.Query("healthy") == "true" {
		RespondOK(c, a.discovery.HealthyInstances(name))
		return
	}
	RespondOK(c, a.discovery.Instances(name))
}

// bestInstance answers with the instance the configured strategy would route
// to. With zero healthy candidates the fallback decision lands here: a 503.
func (a *AdminAPI) bestInstance(c *gin.Context) {
	name := c.Param("name")
	inst, ok := a.discovery.BestInstance(name)
	if !ok {
		RespondWithError(c, apperrors.NoHealthyInstance(name))
		return
	}
	RespondOK(c, inst)
}

func (a *AdminAPI) healthSummary(c *gin.Context) {
	RespondOK(c, a.discovery.HealthSummary())
}

func (a *AdminAPI) systemHealth(c *gin.Context) {
	RespondOK(c, a.discovery.SystemHealth())
}

// refresh triggers one out-of-band probe cycle and replies with the settled
// system health.
func (a *AdminAPI) refresh(c *gin.Context) {
	a.discovery.Refresh(c.Request.Context())
	RespondOK(c, a.discovery.SystemHealth())
}
