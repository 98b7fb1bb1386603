package speech

import (
	"VoiceBoard/pkg/errors"
	"VoiceBoard/pkg/logger"
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	geminiMaxAttempts = 3
	geminiBackoff     = time.Second
)

type GeminiConfig struct {
	APIKey   string
	Model    string
	Language string
}

// GeminiTranscriber asks a Gemini model for a verbatim transcript of inline audio.
type GeminiTranscriber struct {
	cfg    GeminiConfig
	client *genai.Client
}

func NewGeminiTranscriber(ctx context.Context, cfg GeminiConfig) (*GeminiTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini backend")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}
	return &GeminiTranscriber{cfg: cfg, client: client}, nil
}

func (g *GeminiTranscriber) Name() string { return "gemini" }

func (g *GeminiTranscriber) prompt() string {
	return fmt.Sprintf("Transcribe this voice message verbatim. The speaker most likely uses language %q. "+
		"Reply with the transcript only, without commentary. Reply with an empty message if nothing is said.", g.cfg.Language)
}

func (g *GeminiTranscriber) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if audio.Open == nil {
		return "", errors.Transcription(errors.New("audio reader is required"))
	}
	data, err := audio.readAll(ctx)
	if err != nil {
		return "", errors.Transcription(errors.Wrap(err, "read audio"))
	}
	mimeType := audio.ContentType
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(g.prompt()),
			genai.NewPartFromBytes(data, mimeType),
		}, genai.RoleUser),
	}

	var resp *genai.GenerateContentResponse
	for attempt := 1; attempt <= geminiMaxAttempts; attempt++ {
		resp, err = g.client.Models.GenerateContent(ctx, g.cfg.Model, contents, nil)
		if err == nil {
			break
		}
		if !retriable(err) || attempt == geminiMaxAttempts {
			return "", errors.Transcription(err)
		}
		logger.Warn("gemini transcription failed, retrying", zap.Error(err), zap.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return "", errors.Transcription(ctx.Err())
		case <-time.After(geminiBackoff * time.Duration(attempt)):
		}
	}
	return JoinSegments([]Segment{{Text: resp.Text(), Confidence: 1}}, 0), nil
}

// retriable reports server side overload errors worth another attempt.
func retriable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusInternalServerError || apiErr.Code == http.StatusServiceUnavailable
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusInternalServerError || apiErrPtr.Code == http.StatusServiceUnavailable
	}
	return false
}
