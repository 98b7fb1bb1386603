package handlers

import (
	"VoiceBoard/internal/models"
	"VoiceBoard/pkg/cache"
	"VoiceBoard/pkg/logger"
	"VoiceBoard/pkg/response"
	"VoiceBoard/pkg/rotation"
	"VoiceBoard/pkg/sse"
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActiveDisplayCacheKey holds the cached active display list.
const ActiveDisplayCacheKey = "display:active"

const displayCacheName = "display"

// activeDisplayMessages serves the active list from the cache when possible.
func (h *Handlers) activeDisplayMessages(ctx context.Context) ([]models.DisplayMessage, error) {
	if h.cache != nil {
		if msgs, ok := cache.GetJSON[[]models.DisplayMessage](ctx, h.cache, ActiveDisplayCacheKey); ok {
			h.metrics.RecordCacheHit(displayCacheName)
			return msgs, nil
		}
		h.metrics.RecordCacheMiss(displayCacheName)
	}
	msgs, err := models.ListDisplayMessages(h.db.WithContext(ctx), true)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		if err := cache.SetJSON(ctx, h.cache, ActiveDisplayCacheKey, msgs, h.opts.DisplayCacheTTL); err != nil {
			logger.Warn("cache active display messages", zap.Error(err))
		}
	}
	return msgs, nil
}

func (h *Handlers) handleListDisplayMessages(c *gin.Context) {
	var (
		msgs []models.DisplayMessage
		err  error
	)
	if c.Query("active") == "true" {
		msgs, err = h.activeDisplayMessages(c.Request.Context())
	} else {
		msgs, err = models.ListDisplayMessages(h.db.WithContext(c.Request.Context()), false)
	}
	if err != nil {
		h.abort(c, displayError, err, errorKeys{internal: "display.list_failed"})
		return
	}
	response.Success(c, gin.H{
		"messages": msgs,
		"count":    len(msgs),
	})
}

type createDisplayRequest struct {
	MessageText  string `json:"message_text"`
	DisplayOrder int    `json:"display_order"`
}

func (h *Handlers) handleCreateDisplayMessage(c *gin.Context) {
	var req createDisplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, h.t(c, "request.invalid_body"))
		return
	}
	if strings.TrimSpace(req.MessageText) == "" {
		response.Fail(c, http.StatusBadRequest, h.t(c, "display.text_required"))
		return
	}

	msg, err := h.pipeline.PushToDisplay(c.Request.Context(), req.MessageText, req.DisplayOrder)
	if err != nil {
		h.abort(c, displayError, err, errorKeys{validation: "display.text_required", internal: "display.create_failed"})
		return
	}
	response.Success(c, gin.H{
		"message": h.t(c, "display.created"),
		"data":    msg,
	})
}

// handleUpdateDisplayMessage applies a partial update; absent and null fields are untouched.
func (h *Handlers) handleUpdateDisplayMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, h.t(c, "display.invalid_id"))
		return
	}
	var upd models.DisplayMessageUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		response.Fail(c, http.StatusBadRequest, h.t(c, "request.invalid_body"))
		return
	}
	if upd.Empty() {
		response.Fail(c, http.StatusBadRequest, h.t(c, "display.no_fields"))
		return
	}

	msg, err := models.UpdateDisplayMessage(h.db.WithContext(c.Request.Context()), id, upd)
	if err != nil {
		h.abort(c, displayError, err, errorKeys{
			validation: "display.text_required",
			notFound:   "display.not_found",
			internal:   "display.update_failed",
		})
		return
	}
	response.Success(c, gin.H{
		"message": h.t(c, "display.updated"),
		"data":    msg,
	})
}

func (h *Handlers) handleToggleDisplayMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, h.t(c, "display.invalid_id"))
		return
	}
	msg, err := models.ToggleDisplayMessage(h.db.WithContext(c.Request.Context()), id)
	if err != nil {
		h.abort(c, displayError, err, errorKeys{notFound: "display.not_found", internal: "display.update_failed"})
		return
	}
	response.Success(c, gin.H{
		"message": h.t(c, "display.updated"),
		"data":    msg,
	})
}

func (h *Handlers) handleDeleteDisplayMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, h.t(c, "display.invalid_id"))
		return
	}
	if err := models.DeleteDisplayMessage(h.db.WithContext(c.Request.Context()), id); err != nil {
		h.abort(c, displayError, err, errorKeys{notFound: "display.not_found", internal: "display.delete_failed"})
		return
	}
	response.Success(c, gin.H{"message": h.t(c, "display.deleted")})
}

// displayFrame is a rotation frame as sent to viewers; Title is only set on
// the placeholder.
type displayFrame struct {
	rotation.Frame
	Title string `json:"title,omitempty"`
}

// handleDisplayStream drives one rotation per viewer over Server-Sent Events
// until the viewer disconnects.
func (h *Handlers) handleDisplayStream(c *gin.Context) {
	title := h.t(c, "display.placeholder_title")
	body := h.t(c, "display.placeholder_body")

	h.hub.Serve(c, uuid.NewString(), func(ctx context.Context, client *sse.Client) {
		runner := rotation.NewRunner(h.fetchRotation, func(f rotation.Frame) {
			out := displayFrame{Frame: f}
			if f.State == rotation.StateEmpty.String() {
				out.Title = title
				out.Text = body
			}
			h.hub.Send(client.ID(), "frame", out)
		})
		runner.Interval = h.opts.Interval
		runner.Fade = h.opts.Fade
		runner.RefreshEvery = h.opts.RefreshEvery
		runner.Changed = client.Changed()
		_ = runner.Run(ctx)
	})
}

func (h *Handlers) fetchRotation(ctx context.Context) ([]rotation.Message, error) {
	msgs, err := h.activeDisplayMessages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]rotation.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, rotation.Message{ID: m.ID, Text: m.MessageText, Order: m.DisplayOrder})
	}
	return out, nil
}
