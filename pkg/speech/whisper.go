package speech

import (
	"VoiceBoard/pkg/errors"
	"context"
	"path"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

type WhisperConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Language      string
	MinConfidence float64
}

// WhisperTranscriber sends the recording bytes to an OpenAI compatible
// audio transcription endpoint.
type WhisperTranscriber struct {
	cfg    WhisperConfig
	client *openai.Client
	logger *logrus.Logger
}

func NewWhisperTranscriber(cfg WhisperConfig, logger *logrus.Logger) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required for the whisper backend")
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if logger == nil {
		logger = logrus.New()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &WhisperTranscriber{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}, nil
}

func (w *WhisperTranscriber) Name() string { return "whisper" }

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if audio.Open == nil {
		return "", errors.Transcription(errors.New("audio reader is required"))
	}
	rc, err := audio.Open(ctx)
	if err != nil {
		return "", errors.Transcription(errors.Wrap(err, "open audio"))
	}
	defer rc.Close()

	name := path.Base(audio.Key)
	if name == "." || name == "/" {
		name = "audio.webm"
	}
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.cfg.Model,
		Reader:   rc,
		FilePath: name,
		Language: baseLanguage(w.cfg.Language),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		w.logger.WithError(err).WithField("key", audio.Key).Error("whisper transcription failed")
		return "", errors.Transcription(err)
	}

	if len(resp.Segments) == 0 {
		return JoinSegments([]Segment{{Text: resp.Text, Confidence: 1}}, w.cfg.MinConfidence), nil
	}
	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		// Whisper has no per-segment confidence; the speech probability stands in for it.
		segments = append(segments, Segment{Text: s.Text, Confidence: 1 - s.NoSpeechProb})
	}
	text := JoinSegments(segments, w.cfg.MinConfidence)
	w.logger.WithFields(logrus.Fields{
		"key":      audio.Key,
		"segments": len(segments),
		"duration": resp.Duration,
	}).Debug("whisper transcription finished")
	return text, nil
}
