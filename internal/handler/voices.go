package handlers

import (
	"VoiceBoard/internal/models"
	"VoiceBoard/internal/pipeline"
	"VoiceBoard/pkg/errors"
	"VoiceBoard/pkg/logger"
	"VoiceBoard/pkg/middleware"
	"VoiceBoard/pkg/response"
	"VoiceBoard/pkg/search"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleUploadAudio accepts a multipart recording in field "audio".
func (h *Handlers) handleUploadAudio(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, h.t(c, "upload.too_large"))
			return
		}
		response.Error(c, http.StatusBadRequest, h.t(c, "upload.no_file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Warn("read uploaded audio", zap.Error(err))
		response.Error(c, http.StatusBadRequest, h.t(c, "upload.no_file"))
		return
	}

	id, err := h.pipeline.Submit(c.Request.Context(), pipeline.Upload{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		h.abort(c, adminError, err, errorKeys{validation: "upload.no_file", internal: "upload.failed"})
		return
	}

	response.OK(c, gin.H{
		"success":   true,
		"messageId": id,
		"message":   h.t(c, "upload.accepted"),
	})
}

func (h *Handlers) handleListVoiceMessages(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, _, pagination, err := models.ListVoiceMessages(h.db.WithContext(c.Request.Context()), models.VoiceQuery{
		Page:   page,
		Limit:  limit,
		Status: strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		h.abort(c, adminError, err, errorKeys{internal: "admin.list_failed"})
		return
	}
	response.OK(c, gin.H{
		"messages":   messages,
		"pagination": pagination,
	})
}

func (h *Handlers) handleGetVoiceMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, h.t(c, "admin.invalid_id"))
		return
	}
	msg, err := models.GetVoiceMessage(h.db.WithContext(c.Request.Context()), id)
	if err != nil {
		h.abort(c, adminError, err, errorKeys{notFound: "admin.not_found", internal: "admin.list_failed"})
		return
	}
	response.OK(c, gin.H{"message": msg})
}

type updateVoiceRequest struct {
	ModeratedText string `json:"moderatedText"`
	IsApproved    *bool  `json:"isApproved"`
}

// handleUpdateVoiceMessage overrides the moderated text. isApproved defaults to true.
func (h *Handlers) handleUpdateVoiceMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, h.t(c, "admin.invalid_id"))
		return
	}
	var req updateVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, h.t(c, "request.invalid_body"))
		return
	}
	if strings.TrimSpace(req.ModeratedText) == "" {
		response.Error(c, http.StatusBadRequest, h.t(c, "admin.text_required"))
		return
	}
	approved := true
	if req.IsApproved != nil {
		approved = *req.IsApproved
	}

	msg, err := models.UpdateVoiceMessage(h.db.WithContext(c.Request.Context()), id, req.ModeratedText, approved)
	if err != nil {
		h.abort(c, adminError, err, errorKeys{
			validation: "admin.text_required",
			notFound:   "admin.not_found",
			internal:   "admin.update_failed",
		})
		return
	}
	response.Success(c, gin.H{
		"message": msg,
		"info":    h.t(c, "admin.updated"),
	})
}

func (h *Handlers) handleDeleteVoiceMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, h.t(c, "admin.invalid_id"))
		return
	}
	if err := models.DeleteVoiceMessage(h.db.WithContext(c.Request.Context()), id); err != nil {
		h.abort(c, adminError, err, errorKeys{notFound: "admin.not_found", internal: "admin.delete_failed"})
		return
	}
	response.Success(c, gin.H{"info": h.t(c, "admin.deleted")})
}

type sendToDisplayRequest struct {
	DisplayOrder int `json:"display_order"`
}

// handleSendToDisplay copies a voice message's text onto the signage list.
func (h *Handlers) handleSendToDisplay(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, h.t(c, "admin.invalid_id"))
		return
	}
	var req sendToDisplayRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			response.Error(c, http.StatusBadRequest, h.t(c, "request.invalid_body"))
			return
		}
	}

	dm, err := h.pipeline.SendToDisplay(c.Request.Context(), id, req.DisplayOrder)
	if err != nil {
		h.abort(c, adminError, err, errorKeys{
			validation: "admin.no_text_to_send",
			notFound:   "admin.not_found",
			internal:   "admin.send_failed",
		})
		return
	}
	response.Success(c, gin.H{
		"message": h.t(c, "admin.sent_to_display"),
		"data":    dm,
	})
}

// handleSearchVoiceMessages runs a full-text query over transcripts and
// returns the matching records in rank order.
func (h *Handlers) handleSearchVoiceMessages(c *gin.Context) {
	if h.search == nil {
		response.Error(c, http.StatusNotFound, h.t(c, "search.disabled"))
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error(c, http.StatusBadRequest, h.t(c, "search.query_required"))
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > models.MaxPageSize {
		limit = models.DefaultPageSize
	}

	res, err := h.search.Search(c.Request.Context(), search.Query{
		Text:   q,
		Status: strings.TrimSpace(c.Query("status")),
		Size:   limit,
	})
	if err != nil {
		h.abort(c, adminError, err, errorKeys{internal: "search.failed"})
		return
	}

	ids := res.IDs()
	messages := make([]models.VoiceMessage, 0, len(ids))
	if len(ids) > 0 {
		var found []models.VoiceMessage
		if err := h.db.WithContext(c.Request.Context()).Where("id IN ?", ids).Find(&found).Error; err != nil {
			h.abort(c, adminError, errors.Internal(err), errorKeys{internal: "search.failed"})
			return
		}
		byID := make(map[uint]models.VoiceMessage, len(found))
		for _, m := range found {
			byID[m.ID] = m
		}
		for _, id := range ids {
			if m, ok := byID[id]; ok {
				messages = append(messages, m)
			}
		}
	}
	response.Success(c, gin.H{
		"messages": messages,
		"count":    len(messages),
		"total":    res.Total,
	})
}

func (h *Handlers) handleListOperationLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := middleware.ListOperationLogs(h.db.WithContext(c.Request.Context()), limit)
	if err != nil {
		h.abort(c, adminError, errors.Internal(err), errorKeys{internal: "admin.list_failed"})
		return
	}
	response.Success(c, gin.H{"logs": logs, "count": len(logs)})
}
