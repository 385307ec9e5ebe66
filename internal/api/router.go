package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/visora/internal/api/handlers"
	"github.com/your-org/visora/internal/api/ws"
	"github.com/your-org/visora/internal/auth"
)

type RouterConfig struct {
	APIKey string
	Tools  handlers.Tools
	Camera handlers.CameraStateReader
	Hub    *ws.Hub // optional
	Checks []handlers.Check
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.New(corsConfig()))

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checks...)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	// Tools
	toolH := handlers.NewToolHandler(cfg.Tools)
	tools := v1.Group("/tools")
	tools.POST("/camera", toolH.Camera)
	tools.POST("/capture", toolH.Capture)
	tools.POST("/persons", toolH.AddPerson)
	tools.POST("/recognize", toolH.Recognize)
	tools.POST("/session", toolH.Session)
	tools.POST("/weather", toolH.Weather)
	tools.POST("/search", toolH.Search)
	tools.POST("/email", toolH.Email)

	// Camera state
	camH := handlers.NewCameraHandler(cfg.Camera)
	v1.GET("/sessions/:id/camera", camH.Get)
	v1.GET("/rooms/:room/camera", camH.GetByRoom)

	return r
}

func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	c.AllowAllOrigins = true
	c.AddAllowHeaders("X-API-Key", "X-Room-Name")
	return c
}
