package handlers

import (
	"VoiceBoard/internal/models"
	"VoiceBoard/pkg/metrics"
	"VoiceBoard/pkg/response"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleHealthCheck pings the database.
func (h *Handlers) handleHealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// handleSystemStats reports record counts per status plus a host snapshot.
func (h *Handlers) handleSystemStats(c *gin.Context) {
	counts, err := models.VoiceStatusCounts(h.db.WithContext(c.Request.Context()))
	if err != nil {
		h.abort(c, displayError, err, errorKeys{internal: "system.stats_failed"})
		return
	}
	h.metrics.SetVoiceMessages(counts)

	var displayTotal, displayActive int64
	h.db.WithContext(c.Request.Context()).Model(&models.DisplayMessage{}).Count(&displayTotal)
	h.db.WithContext(c.Request.Context()).Model(&models.DisplayMessage{}).Where("is_active = ?", true).Count(&displayActive)

	body := gin.H{
		"voiceMessages": counts,
		"displayMessages": gin.H{
			"total":  displayTotal,
			"active": displayActive,
		},
		"viewers": h.hub.Count(),
		"system":  metrics.CollectSystemStats(c.Request.Context(), h.opts.DiskPath),
	}
	if h.search != nil {
		if n, err := h.search.Count(); err == nil {
			body["indexed"] = n
		}
	}
	response.Success(c, body)
}

type debugVoiceRow struct {
	ID               uint      `json:"id"`
	Filename         string    `json:"filename"`
	FileURL          string    `json:"file_url"`
	Status           string    `json:"status"`
	HasTranscription bool      `json:"hasTranscription"`
	HasModeratedText bool      `json:"hasModeratedText"`
	IsApproved       bool      `json:"isApproved"`
	CreatedAt        time.Time `json:"created_at"`
}

// handleDebugDB summarizes the ten newest voice messages. Only registered
// when debug routes are enabled.
func (h *Handlers) handleDebugDB(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	tableExists := db.Migrator().HasTable(&models.VoiceMessage{})

	var recent []models.VoiceMessage
	if tableExists {
		if err := db.Order("created_at DESC").Order("id DESC").Limit(10).Find(&recent).Error; err != nil {
			response.Fail(c, http.StatusInternalServerError, err.Error())
			return
		}
	}
	rows := make([]debugVoiceRow, 0, len(recent))
	for _, m := range recent {
		rows = append(rows, debugVoiceRow{
			ID:               m.ID,
			Filename:         m.Filename,
			FileURL:          m.FileURL,
			Status:           m.Status,
			HasTranscription: m.Transcription != nil && *m.Transcription != "",
			HasModeratedText: m.ModeratedText != nil && *m.ModeratedText != "",
			IsApproved:       m.IsApproved,
			CreatedAt:        m.CreatedAt,
		})
	}
	response.Success(c, gin.H{
		"tableExists":  tableExists,
		"messageCount": len(rows),
		"messages":     rows,
		"dbDriver":     h.db.Dialector.Name(),
	})
}
