package speech

import "context"

// StaticTranscriber returns a fixed transcript or error. Used offline and in tests.
type StaticTranscriber struct {
	Text string
	Err  error
}

func (s *StaticTranscriber) Name() string { return "static" }

func (s *StaticTranscriber) Transcribe(ctx context.Context, _ Audio) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Err != nil {
		return "", s.Err
	}
	return JoinSegments([]Segment{{Text: s.Text, Confidence: 1}}, 0), nil
}
