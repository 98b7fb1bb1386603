package listeners

import (
	"VoiceBoard/internal/models"
	"VoiceBoard/pkg/logger"
	"VoiceBoard/pkg/search"
	"VoiceBoard/pkg/util"
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const indexTimeout = 5 * time.Second

// ToVoiceDoc projects a voice message onto its search document.
func ToVoiceDoc(m *models.VoiceMessage) search.VoiceDoc {
	doc := search.VoiceDoc{
		ID:         m.ID,
		Status:     m.Status,
		IsApproved: m.IsApproved,
		CreatedAt:  m.CreatedAt,
	}
	if m.Transcription != nil {
		doc.Transcription = *m.Transcription
	}
	if m.ModeratedText != nil {
		doc.ModeratedText = *m.ModeratedText
	}
	return doc
}

// InitSearchListeners keeps the transcript index in step with the voice_messages table.
func InitSearchListeners(db *gorm.DB, engine search.Engine) {
	index := func(sender any, _ ...any) {
		msg, ok := sender.(*models.VoiceMessage)
		if !ok {
			return
		}
		indexVoice(engine, msg)
	}
	util.Sig().Connect(models.SigVoiceCreated, index)
	util.Sig().Connect(models.SigVoiceCompleted, index)
	util.Sig().Connect(models.SigVoiceUpdated, index)

	util.Sig().Connect(models.SigVoiceFailed, func(sender any, _ ...any) {
		id, ok := sender.(uint)
		if !ok {
			return
		}
		msg, err := models.GetVoiceMessage(db, id)
		if err != nil {
			logger.Warn("reindex failed voice message", zap.Uint("id", id), zap.Error(err))
			return
		}
		indexVoice(engine, msg)
	})

	util.Sig().Connect(models.SigVoiceDeleted, func(sender any, _ ...any) {
		id, ok := sender.(uint)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		defer cancel()
		if err := engine.Delete(ctx, id); err != nil {
			logger.Warn("remove voice message from index", zap.Uint("id", id), zap.Error(err))
		}
	})
}

func indexVoice(engine search.Engine, msg *models.VoiceMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()
	if err := engine.Index(ctx, ToVoiceDoc(msg)); err != nil {
		logger.Warn("index voice message", zap.Uint("id", msg.ID), zap.Error(err))
	}
}

// Reindex rebuilds the index from the table in batches.
func Reindex(ctx context.Context, db *gorm.DB, engine search.Engine) (int, error) {
	var (
		total int
		batch []models.VoiceMessage
	)
	err := db.WithContext(ctx).Model(&models.VoiceMessage{}).Order("id").
		FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
			docs := make([]search.VoiceDoc, 0, len(batch))
			for i := range batch {
				docs = append(docs, ToVoiceDoc(&batch[i]))
			}
			total += len(docs)
			return engine.IndexBatch(ctx, docs)
		}).Error
	return total, err
}
