package api

import (
	"context"
	"errors"
	"net/http"

	"reseller-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	Session *service.DashboardSession
}

func NewDashboardHandler(session *service.DashboardSession) *DashboardHandler {
	return &DashboardHandler{Session: session}
}

// GetDashboard serves the current snapshot. The first request of the process
// performs the initial load before answering; the load is detached from the
// request so a client hanging up does not waste the one-shot start.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	h.Session.Start(context.WithoutCancel(c.Request.Context()))
	c.JSON(http.StatusOK, gin.H{"data": h.Session.Snapshot()})
}

// RefreshDashboard forces a new cycle. Failures still return the last good stats.
func (h *DashboardHandler) RefreshDashboard(c *gin.Context) {
	err := h.Session.Refresh(c.Request.Context())
	switch {
	case errors.Is(err, service.ErrSessionBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "data": h.Session.Snapshot()})
	default:
		c.JSON(http.StatusOK, gin.H{"data": h.Session.Snapshot()})
	}
}
