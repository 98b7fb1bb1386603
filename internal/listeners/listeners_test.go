package listeners_test

import (
	"VoiceBoard/internal/listeners"
	"VoiceBoard/internal/models"
	"VoiceBoard/internal/testutil"
	"VoiceBoard/pkg/cache"
	"VoiceBoard/pkg/search"
	"VoiceBoard/pkg/sse"
	"VoiceBoard/pkg/util"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSignals(t *testing.T) {
	t.Cleanup(func() {
		for _, sig := range []string{
			models.SigVoiceCreated, models.SigVoiceCompleted, models.SigVoiceFailed,
			models.SigVoiceUpdated, models.SigVoiceDeleted, models.SigDisplayChanged,
		} {
			util.Sig().Clear(sig)
		}
	})
}

func TestSearchListenersFollowVoiceLifecycle(t *testing.T) {
	clearSignals(t)
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	engine, err := search.NewMemOnly(search.Config{})
	require.NoError(t, err)
	defer engine.Close()
	listeners.InitSearchListeners(db, engine)

	msg, err := models.CreateVoiceMessage(db, "voice-messages/a.webm", "a.webm", "/uploads/a")
	require.NoError(t, err)
	res, err := engine.Search(ctx, search.Query{Status: models.StatusProcessing})
	require.NoError(t, err)
	assert.Equal(t, []uint{msg.ID}, res.IDs())

	_, err = models.CompleteVoiceMessage(db, msg.ID, "오늘 날씨가 좋네요", "오늘 날씨가 좋네요", true)
	require.NoError(t, err)
	res, err = engine.Search(ctx, search.Query{Text: "날씨"})
	require.NoError(t, err)
	assert.Equal(t, []uint{msg.ID}, res.IDs())

	other, err := models.CreateVoiceMessage(db, "voice-messages/b.webm", "b.webm", "/uploads/b")
	require.NoError(t, err)
	_, err = models.FailVoiceMessage(db, other.ID)
	require.NoError(t, err)
	res, err = engine.Search(ctx, search.Query{Status: models.StatusError})
	require.NoError(t, err)
	assert.Equal(t, []uint{other.ID}, res.IDs())

	require.NoError(t, models.DeleteVoiceMessage(db, msg.ID))
	res, err = engine.Search(ctx, search.Query{Text: "날씨"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestReindex(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	for i := 0; i < 3; i++ {
		_, err := models.CreateVoiceMessage(db, "k", "f", "u")
		require.NoError(t, err)
	}
	engine, err := search.NewMemOnly(search.Config{})
	require.NoError(t, err)
	defer engine.Close()

	n, err := listeners.Reindex(ctx, db, engine)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	count, err := engine.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestDisplayListenerInvalidatesCacheAndNotifies(t *testing.T) {
	clearSignals(t)
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	c := cache.NewGoCache(cache.LocalConfig{DefaultExpiration: time.Minute, CleanupInterval: time.Minute})
	hub := sse.NewHub(time.Hour)
	viewer := hub.AddClient("v")
	listeners.InitDisplayListeners(c, hub, "display:active")

	require.NoError(t, c.Set(ctx, "display:active", []byte("[]"), time.Minute))
	_, err := models.CreateDisplayMessage(db, "안녕하세요", 0)
	require.NoError(t, err)

	_, ok := c.Get(ctx, "display:active")
	assert.False(t, ok)
	select {
	case <-viewer.Changed():
	default:
		t.Fatal("viewer was not notified")
	}
}

func TestSearchListenersFollowStaleSweep(t *testing.T) {
	clearSignals(t)
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	engine, err := search.NewMemOnly(search.Config{})
	require.NoError(t, err)
	defer engine.Close()
	listeners.InitSearchListeners(db, engine)

	msg, err := models.CreateVoiceMessage(db, "voice-messages/s.webm", "s.webm", "/uploads/s")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.VoiceMessage{}).Where("id = ?", msg.ID).
		UpdateColumn("created_at", time.Now().Add(-time.Hour)).Error)

	n, err := models.FailStaleVoiceMessages(db, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	res, err := engine.Search(ctx, search.Query{Status: models.StatusError})
	require.NoError(t, err)
	assert.Equal(t, []uint{msg.ID}, res.IDs())

	res, err = engine.Search(ctx, search.Query{Status: models.StatusProcessing})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}
