package handlers

import (
	"VoiceBoard/pkg/errors"
	"VoiceBoard/pkg/logger"
	"VoiceBoard/pkg/middleware"
	"VoiceBoard/pkg/response"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// t localizes key in the request's language.
func (h *Handlers) t(c *gin.Context, key string) string {
	if h.i18n == nil {
		return key
	}
	return h.i18n.T(middleware.Lang(c), key, nil)
}

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// errorKeys names the messages used for each error kind.
type errorKeys struct {
	validation string
	notFound   string
	internal   string
}

// writer is response.Error for admin routes, response.Fail for display routes.
type writer func(c *gin.Context, status int, message string)

// abort answers err with the localized message for its kind. Unexpected
// errors are logged and answered with a generic 500.
func (h *Handlers) abort(c *gin.Context, write writer, err error, keys errorKeys) {
	switch {
	case errors.Is(err, errors.ErrValidation) && keys.validation != "":
		write(c, http.StatusBadRequest, h.t(c, keys.validation))
	case errors.Is(err, errors.ErrNotFound) && keys.notFound != "":
		write(c, http.StatusNotFound, h.t(c, keys.notFound))
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		write(c, http.StatusInternalServerError, h.t(c, keys.internal))
	}
}

var (
	adminError   writer = response.Error
	displayError writer = response.Fail
)
