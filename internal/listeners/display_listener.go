package listeners

import (
	"VoiceBoard/internal/models"
	"VoiceBoard/pkg/cache"
	"VoiceBoard/pkg/logger"
	"VoiceBoard/pkg/sse"
	"VoiceBoard/pkg/util"
	"context"

	"go.uber.org/zap"
)

// InitDisplayListeners drops the cached display lists and wakes the signage
// streams whenever a display message changes.
func InitDisplayListeners(c cache.Cache, hub *sse.Hub, cacheKeys ...string) {
	util.Sig().Connect(models.SigDisplayChanged, func(sender any, _ ...any) {
		if c != nil && len(cacheKeys) > 0 {
			if err := c.Delete(context.Background(), cacheKeys...); err != nil {
				logger.Warn("invalidate display cache", zap.Error(err))
			}
		}
		if hub != nil {
			hub.Notify()
		}
	})
}
