package storage

import (
	"VoiceBoard/pkg/config"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"audio/webm":               "webm",
		"audio/webm;codecs=opus":   "webm",
		"audio/ogg":                "ogg",
		"audio/mpeg":               "mp3",
		"audio/mp4":                "m4a",
		"AUDIO/WEBM":               "webm",
		"application/octet-stream": "wav",
		"":                         "wav",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtensionFor(in), in)
	}
}

func TestNewKey(t *testing.T) {
	a := NewKey("audio/webm")
	b := NewKey("audio/webm")
	assert.True(t, strings.HasPrefix(a, KeyPrefix))
	assert.True(t, strings.HasSuffix(a, ".webm"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(NewKey(""), ".wav"))
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	key := NewKey("audio/webm")
	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Write(ctx, key, bytes.NewReader([]byte("audio-bytes")), 11, "audio/webm"))

	ok, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, size, err := store.Read(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
	assert.EqualValues(t, 11, size)

	u, err := store.URL(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/"+key, u)
	assert.True(t, strings.HasPrefix(store.URI(key), "file://"))

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key))
	ok, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	err = store.Write(context.Background(), "../outside", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{StorageDriver: "local", LocalStoragePath: t.TempDir(), LocalStorageBaseURL: "/u"}
	store, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, DriverLocal, store.Name())

	_, err = NewFromConfig(context.Background(), &config.Config{StorageDriver: "ftp"})
	assert.Error(t, err)

	_, err = NewFromConfig(context.Background(), &config.Config{StorageDriver: "cos", COSBucketURL: "::bad"})
	assert.Error(t, err)
}
