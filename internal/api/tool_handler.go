package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"reseller-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

const whoisTimeout = 20 * time.Second

// DomainInspector is the WHOIS lookup the tool endpoint needs.
type DomainInspector interface {
	Inspect(ctx context.Context, name string) (service.WhoisResult, error)
}

type ToolHandler struct {
	Inspector DomainInspector
}

func NewToolHandler(inspector DomainInspector) *ToolHandler {
	return &ToolHandler{Inspector: inspector}
}

// WhoisLookup reports registry expiry data for one domain. It is informational
// and does not feed the dashboard stats.
func (h *ToolHandler) WhoisLookup(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), whoisTimeout)
	defer cancel()

	result, err := h.Inspector.Inspect(ctx, c.Param("domain"))
	switch {
	case errors.Is(err, service.ErrNoExpiryDate):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "whois lookup timed out"})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}
