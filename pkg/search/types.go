package search

import "time"

type Config struct {
	IndexPath       string
	DefaultAnalyzer string
	QueryTimeout    time.Duration
	BatchSize       int
}

// DocType is the bleve type of every voice message document.
const DocType = "voice"

// VoiceDoc is the indexed projection of a voice message.
type VoiceDoc struct {
	ID            uint
	Transcription string
	ModeratedText string
	Status        string
	IsApproved    bool
	CreatedAt     time.Time
}

func (d VoiceDoc) fields() map[string]any {
	return map[string]any{
		"type":           DocType,
		"transcription":  d.Transcription,
		"moderated_text": d.ModeratedText,
		"status":         d.Status,
		"is_approved":    d.IsApproved,
		"created_at":     d.CreatedAt,
	}
}

// Query matches Text against the transcript fields, optionally filtered.
type Query struct {
	Text      string
	Status    string
	Approved  *bool
	From      int
	Size      int
	Highlight bool
}

type Hit struct {
	ID        uint
	Score     float64
	Fragments map[string][]string
}

type Result struct {
	Total uint64
	Took  time.Duration
	Hits  []Hit
}

// IDs returns the hit ids in rank order.
func (r Result) IDs() []uint {
	ids := make([]uint, 0, len(r.Hits))
	for _, h := range r.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}
