package speech

import (
	"VoiceBoard/pkg/config"
	"VoiceBoard/pkg/errors"
	"VoiceBoard/pkg/storage"
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	DriverGoogle  = "google"
	DriverWhisper = "whisper"
	DriverGemini  = "gemini"
	DriverStatic  = "static"
)

// NewFromConfig builds the transcriber selected by SPEECH_DRIVER.
func NewFromConfig(ctx context.Context, cfg *config.Config, log *logrus.Logger) (Transcriber, error) {
	switch strings.ToLower(cfg.SpeechDriver) {
	case DriverGoogle:
		return NewGoogleTranscriber(ctx, GoogleConfig{
			LanguageCode:        cfg.SpeechLanguage,
			AlternativeLanguage: cfg.SpeechAltLanguages,
			MinConfidence:       cfg.SpeechMinConfidence,
		}, storage.GCSConfigFrom(cfg).ClientOptions()...)
	case DriverWhisper, "openai":
		return NewWhisperTranscriber(WhisperConfig{
			APIKey:        cfg.OpenAIAPIKey,
			BaseURL:       cfg.OpenAIBaseURL,
			Model:         cfg.WhisperModel,
			Language:      cfg.SpeechLanguage,
			MinConfidence: cfg.SpeechMinConfidence,
		}, log)
	case DriverGemini:
		return NewGeminiTranscriber(ctx, GeminiConfig{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			Language: cfg.SpeechLanguage,
		})
	case DriverStatic, "":
		return &StaticTranscriber{Text: cfg.StaticTranscript}, nil
	default:
		return nil, errors.Errorf("unsupported speech driver: %s", cfg.SpeechDriver)
	}
}
