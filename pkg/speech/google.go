package speech

import (
	"VoiceBoard/pkg/errors"
	"VoiceBoard/pkg/logger"
	"context"
	"strings"
	"time"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type GoogleConfig struct {
	LanguageCode        string
	AlternativeLanguage []string
	MinConfidence       float64
	SampleRateHertz     int32
	Model               string
}

// GoogleTranscriber runs Cloud Speech long running recognition against a
// gs:// URI, or inline content when the recording lives elsewhere.
type GoogleTranscriber struct {
	cfg    GoogleConfig
	client *gspeech.Client
}

func NewGoogleTranscriber(ctx context.Context, cfg GoogleConfig, opts ...option.ClientOption) (*GoogleTranscriber, error) {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "ko-KR"
	}
	if cfg.SampleRateHertz == 0 {
		cfg.SampleRateHertz = 48000
	}
	if cfg.Model == "" {
		cfg.Model = "latest_long"
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	client, err := gspeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create speech client")
	}
	return &GoogleTranscriber{cfg: cfg, client: client}, nil
}

func (g *GoogleTranscriber) Name() string { return "google" }

func (g *GoogleTranscriber) Close() error { return g.client.Close() }

func (g *GoogleTranscriber) recognitionConfig() *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_WEBM_OPUS,
		SampleRateHertz:            g.cfg.SampleRateHertz,
		LanguageCode:               g.cfg.LanguageCode,
		AlternativeLanguageCodes:   g.cfg.AlternativeLanguage,
		EnableAutomaticPunctuation: true,
		EnableWordConfidence:       true,
		Model:                      g.cfg.Model,
		UseEnhanced:                true,
	}
}

func (g *GoogleTranscriber) recognitionAudio(ctx context.Context, audio Audio) (*speechpb.RecognitionAudio, error) {
	if strings.HasPrefix(audio.URI, "gs://") {
		return &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Uri{Uri: audio.URI}}, nil
	}
	if audio.Open == nil {
		return nil, errors.Validation("audio has neither a gs:// uri nor a reader")
	}
	data, err := audio.readAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read audio")
	}
	return &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: data}}, nil
}

func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio Audio) (string, error) {
	start := time.Now()
	src, err := g.recognitionAudio(ctx, audio)
	if err != nil {
		return "", errors.Transcription(err)
	}

	op, err := g.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: g.recognitionConfig(),
		Audio:  src,
	})
	if err != nil {
		return "", errors.Transcription(describeRPCError(err, audio.URI))
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return "", errors.Transcription(describeRPCError(err, audio.URI))
	}

	segments := make([]Segment, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		segments = append(segments, Segment{Text: alts[0].GetTranscript(), Confidence: float64(alts[0].GetConfidence())})
	}
	text := JoinSegments(segments, g.cfg.MinConfidence)

	logger.Debug("speech recognition finished",
		zap.String("uri", audio.URI),
		zap.Int("segments", len(segments)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

// describeRPCError names the common failure of a missing object.
func describeRPCError(err error, uri string) error {
	if status.Code(err) == codes.NotFound {
		return errors.Wrapf(err, "audio file not found: %s", uri)
	}
	return err
}
