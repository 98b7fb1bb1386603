package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeyPrefix is the folder every uploaded recording is stored under.
const KeyPrefix = "voice-messages/"

// SignedURLTTL is how long a signed download URL stays valid.
const SignedURLTTL = 24 * time.Hour

// Store is an object store holding uploaded recordings.
type Store interface {
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Read(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URL returns a locator a browser can fetch; it may be time limited.
	URL(ctx context.Context, key string) (string, error)
	// URI is the backend address handed to speech services, e.g. gs://bucket/key.
	URI(key string) string
	Name() string
}

var extensions = map[string]string{
	"audio/webm":  "webm",
	"video/webm":  "webm",
	"audio/ogg":   "ogg",
	"audio/mpeg":  "mp3",
	"audio/mp3":   "mp3",
	"audio/mp4":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
}

// ExtensionFor maps a declared MIME type to a file extension; unknown types are wav.
func ExtensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if ext, ok := extensions[mediaType]; ok {
		return ext
	}
	return "wav"
}

// NewKey generates a unique storage key for a recording.
func NewKey(contentType string) string {
	return KeyPrefix + uuid.NewString() + "." + ExtensionFor(contentType)
}

var contentTypes = map[string]string{
	"webm": "audio/webm",
	"ogg":  "audio/ogg",
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
}

// ContentTypeFor is the MIME type stored recordings with key's extension carry.
func ContentTypeFor(key string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "audio/wav"
}
