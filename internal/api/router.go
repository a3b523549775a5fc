package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Dashboard *DashboardHandler
	Settings  *SettingsHandler
	Tools     *ToolHandler
}

// NewRouter wires middleware and routes. jwtSecret guards /api/v1 when set.
func NewRouter(h Handlers, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(), CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(jwtSecret))
	{
		v1.GET("/dashboard", h.Dashboard.GetDashboard)
		v1.POST("/dashboard/refresh", h.Dashboard.RefreshDashboard)

		v1.GET("/settings", h.Settings.GetSettings)
		v1.POST("/settings", h.Settings.SaveSettings)
		v1.POST("/settings/test", h.Settings.TestNotification)

		v1.GET("/tools/whois/:domain", h.Tools.WhoisLookup)
	}

	return r
}
