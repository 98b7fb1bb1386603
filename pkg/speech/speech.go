package speech

import (
	"context"
	"io"
	"strings"
)

// DefaultMinConfidence is the bar a recognized segment must pass to be kept.
const DefaultMinConfidence = 0.5

// Audio points at a stored recording. URI is the object store address
// (gs://, s3://, file://); Open streams the bytes for backends that need them.
type Audio struct {
	URI         string
	Key         string
	ContentType string
	Open        func(ctx context.Context) (io.ReadCloser, error)
}

func (a Audio) readAll(ctx context.Context) ([]byte, error) {
	rc, err := a.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Transcriber turns a stored recording into text. Implementations block until
// the backend finishes and honor ctx cancellation.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
	Name() string
}

// Segment is one recognized chunk with the confidence of its best alternative.
type Segment struct {
	Text       string
	Confidence float64
}

// JoinSegments keeps segments above minConfidence, joins them with one space
// and trims the result.
func JoinSegments(segments []Segment, minConfidence float64) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.Confidence > minConfidence {
			parts = append(parts, s.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// baseLanguage reduces a BCP-47 tag like "ko-KR" to "ko".
func baseLanguage(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		return strings.ToLower(tag[:i])
	}
	return strings.ToLower(tag)
}
