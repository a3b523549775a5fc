package api

import (
	"encoding/json"
	"io"
	"net/http"

	"reseller-dashboard/internal/domain"
	"reseller-dashboard/internal/repository"
	"reseller-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// JobReloader re-reads schedules after settings change.
type JobReloader interface {
	ReloadJobs()
}

type SettingsHandler struct {
	Repo     repository.SettingsRepository
	Notifier *service.NotifierService
	Jobs     JobReloader
}

func NewSettingsHandler(repo repository.SettingsRepository, notifier *service.NotifierService, jobs JobReloader) *SettingsHandler {
	return &SettingsHandler{Repo: repo, Notifier: notifier, Jobs: jobs}
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.Repo.GetSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}

// SaveSettings merges the posted fields onto the stored document, so a
// partial body leaves other fields untouched.
func (h *SettingsHandler) SaveSettings(c *gin.Context) {
	ctx := c.Request.Context()

	current, err := h.Repo.GetSettings(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 1. Merge the posted fields onto the stored document
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read request body"})
		return
	}
	lastDigestAt := current.LastDigestAt
	if err := json.Unmarshal(body, current); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings: " + err.Error()})
		return
	}
	current.LastDigestAt = lastDigestAt // not client-writable

	// 2. Validate, persist, reschedule
	if current.DigestCooldownHours < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "digest_cooldown_hours must not be negative"})
		return
	}

	if err := h.Repo.SaveSettings(ctx, *current); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.Jobs != nil {
		h.Jobs.ReloadJobs()
	}
	logrus.WithField("request_id", c.GetString(ctxRequestID)).Info("[Settings] settings saved, jobs reloaded")
	c.JSON(http.StatusOK, gin.H{"data": current})
}

// TestNotification sends a test message using the posted settings, without saving them.
func (h *SettingsHandler) TestNotification(c *gin.Context) {
	var settings domain.NotificationSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.Notifier.SendTestMessage(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "test message sent"})
}
