package pipeline

import (
	"VoiceBoard/internal/models"
	"VoiceBoard/internal/moderation"
	"VoiceBoard/pkg/errors"
	"VoiceBoard/pkg/logger"
	"VoiceBoard/pkg/metrics"
	"VoiceBoard/pkg/scheduler"
	"VoiceBoard/pkg/speech"
	"VoiceBoard/pkg/storage"
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Upload is one recording as received from the client.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Pipeline takes a recording from upload to a finalized, moderated record.
type Pipeline struct {
	db          *gorm.DB
	store       storage.Store
	transcriber speech.Transcriber
	filter      *moderation.Filter
	executor    *scheduler.Executor
	metrics     *metrics.Metrics
}

// New wires the collaborators. A nil executor makes Submit run Finish inline.
func New(db *gorm.DB, store storage.Store, transcriber speech.Transcriber, filter *moderation.Filter, executor *scheduler.Executor, m *metrics.Metrics) *Pipeline {
	if filter == nil {
		filter = moderation.New(moderation.DefaultBannedWords, moderation.DefaultMaxLength)
	}
	return &Pipeline{
		db:          db,
		store:       store,
		transcriber: transcriber,
		filter:      filter,
		executor:    executor,
		metrics:     m,
	}
}

// Submit stores the audio, records it as processing and schedules Finish.
// It returns as soon as the record exists.
func (p *Pipeline) Submit(ctx context.Context, up Upload) (uint, error) {
	if len(up.Data) == 0 {
		return 0, errors.Validation("audio payload is empty")
	}

	key := storage.NewKey(up.ContentType)
	if err := p.store.Write(ctx, key, bytes.NewReader(up.Data), int64(len(up.Data)), storage.ContentTypeFor(key)); err != nil {
		p.metrics.RecordUpload(metrics.ResultFailed)
		return 0, errors.Upload(err).WithContext("key", key)
	}
	url, err := p.store.URL(ctx, key)
	if err != nil {
		p.metrics.RecordUpload(metrics.ResultFailed)
		return 0, errors.Upload(err).WithContext("key", key)
	}

	msg, err := models.CreateVoiceMessage(p.db.WithContext(ctx), key, up.Filename, url)
	if err != nil {
		p.metrics.RecordUpload(metrics.ResultFailed)
		return 0, err
	}
	p.metrics.RecordUpload(metrics.ResultCompleted)
	logger.Info("voice message stored",
		zap.Uint("id", msg.ID),
		zap.String("key", key),
		zap.String("store", p.store.Name()),
		zap.Int("bytes", len(up.Data)))

	p.schedule(msg.ID, key)
	return msg.ID, nil
}

func (p *Pipeline) schedule(id uint, key string) {
	task := func(ctx context.Context) error { return p.Finish(ctx, id, key) }
	if p.executor == nil {
		_ = task(context.Background())
		return
	}
	if err := p.executor.Submit("finish-"+strconv.FormatUint(uint64(id), 10), task); err != nil {
		// left open; the stale sweep moves it to error
		logger.Warn("finish not scheduled", zap.Uint("id", id), zap.Error(err))
	}
}

// Finish transcribes the stored audio, moderates the text and finalizes the
// record. A transcription or storage failure marks the record as error;
// nothing is retried.
func (p *Pipeline) Finish(ctx context.Context, id uint, key string) error {
	start := time.Now()
	audio := speech.Audio{
		URI:         p.store.URI(key),
		Key:         key,
		ContentType: storage.ContentTypeFor(key),
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			rc, _, err := p.store.Read(ctx, key)
			return rc, err
		},
	}

	text, err := p.transcriber.Transcribe(ctx, audio)
	if err != nil {
		terr := errors.Transcription(err).WithContext("key", key)
		logger.Error("transcription failed",
			zap.Uint("id", id),
			zap.String("backend", p.transcriber.Name()),
			zap.Error(terr))
		// the request context may be gone; the failure must still be recorded
		if _, ferr := models.FailVoiceMessage(p.db.WithContext(context.WithoutCancel(ctx)), id); ferr != nil {
			logger.Error("mark voice message failed", zap.Uint("id", id), zap.Error(ferr))
		}
		p.metrics.RecordPipeline(metrics.ResultFailed, time.Since(start))
		return terr
	}

	approved, moderated := p.filter.Moderate(text)
	if !approved {
		p.metrics.RecordModerationFlagged()
	}
	updated, err := models.CompleteVoiceMessage(p.db.WithContext(ctx), id, text, moderated, approved)
	if err != nil {
		logger.Error("store transcription failed", zap.Uint("id", id), zap.Error(err))
		if _, ferr := models.FailVoiceMessage(p.db.WithContext(context.WithoutCancel(ctx)), id); ferr != nil {
			logger.Error("mark voice message failed", zap.Uint("id", id), zap.Error(ferr))
		}
		p.metrics.RecordPipeline(metrics.ResultFailed, time.Since(start))
		return err
	}
	if !updated {
		logger.Warn("voice message already final, result dropped", zap.Uint("id", id))
		p.metrics.RecordPipeline(metrics.ResultSkipped, time.Since(start))
		return nil
	}
	logger.Info("voice message transcribed",
		zap.Uint("id", id),
		zap.Bool("approved", approved),
		zap.Int("chars", len([]rune(text))),
		zap.Duration("took", time.Since(start)))
	p.metrics.RecordPipeline(metrics.ResultCompleted, time.Since(start))
	return nil
}

// PushToDisplay adds text to the signage list.
func (p *Pipeline) PushToDisplay(ctx context.Context, text string, order int) (*models.DisplayMessage, error) {
	return models.CreateDisplayMessage(p.db.WithContext(ctx), strings.TrimSpace(text), order)
}

// SendToDisplay copies a voice message's moderated text (or its raw
// transcription) into a new display message.
func (p *Pipeline) SendToDisplay(ctx context.Context, voiceID uint, order int) (*models.DisplayMessage, error) {
	msg, err := models.GetVoiceMessage(p.db.WithContext(ctx), voiceID)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(msg.DisplayText())
	if text == "" {
		return nil, errors.Validation("voice message has no text")
	}
	return p.PushToDisplay(ctx, text, order)
}

// Sweep moves records open for longer than staleAfter to error.
func (p *Pipeline) Sweep(ctx context.Context, staleAfter time.Duration) (int64, error) {
	n, err := models.FailStaleVoiceMessages(p.db.WithContext(ctx), time.Now().Add(-staleAfter))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Warn("stale voice messages marked as error", zap.Int64("count", n), zap.Duration("stale_after", staleAfter))
	}
	return n, nil
}
