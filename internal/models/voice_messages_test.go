package models_test

import (
	"VoiceBoard/internal/models"
	"VoiceBoard/internal/testutil"
	"VoiceBoard/pkg/errors"
	"VoiceBoard/pkg/util"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		page, limit int
		total       int64
		want        models.Pagination
	}{
		{1, 10, 25, models.Pagination{CurrentPage: 1, TotalPages: 3, TotalCount: 25, HasNext: true, HasPrev: false}},
		{3, 10, 25, models.Pagination{CurrentPage: 3, TotalPages: 3, TotalCount: 25, HasNext: false, HasPrev: true}},
		{1, 10, 0, models.Pagination{CurrentPage: 1, TotalPages: 0, TotalCount: 0}},
		{2, 5, 10, models.Pagination{CurrentPage: 2, TotalPages: 2, TotalCount: 10, HasNext: false, HasPrev: true}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("page%d_limit%d_total%d", tc.page, tc.limit, tc.total), func(t *testing.T) {
			assert.Equal(t, tc.want, models.NewPagination(tc.page, tc.limit, tc.total))
		})
	}
}

func TestCreateAndGetVoiceMessage(t *testing.T) {
	db := testutil.NewTestDB(t)

	created, err := models.CreateVoiceMessage(db, "voice-messages/a.webm", "recording.webm", "/uploads/voice-messages/a.webm")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.StatusProcessing, created.Status)

	got, err := models.GetVoiceMessage(db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "voice-messages/a.webm", got.Filename)
	assert.Equal(t, "recording.webm", got.OriginalFilename)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Nil(t, got.Transcription)
	assert.Nil(t, got.ModeratedText)
	assert.False(t, got.IsApproved)
}

func TestGetVoiceMessageNotFound(t *testing.T) {
	db := testutil.NewTestDB(t)

	_, err := models.GetVoiceMessage(db, 999)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestListVoiceMessages(t *testing.T) {
	db := testutil.NewTestDB(t)
	for i := 0; i < 25; i++ {
		_, err := models.CreateVoiceMessage(db, fmt.Sprintf("k%d", i), "", "u")
		require.NoError(t, err)
	}

	t.Run("first page newest first", func(t *testing.T) {
		msgs, total, p, err := models.ListVoiceMessages(db, models.VoiceQuery{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, msgs, 10)
		assert.EqualValues(t, 25, total)
		assert.Equal(t, 3, p.TotalPages)
		assert.True(t, p.HasNext)
		assert.False(t, p.HasPrev)
		assert.Equal(t, "k24", msgs[0].Filename)
	})

	t.Run("last page", func(t *testing.T) {
		msgs, _, p, err := models.ListVoiceMessages(db, models.VoiceQuery{Page: 3, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, msgs, 5)
		assert.False(t, p.HasNext)
		assert.True(t, p.HasPrev)
	})

	t.Run("defaults for non-positive values", func(t *testing.T) {
		msgs, _, p, err := models.ListVoiceMessages(db, models.VoiceQuery{Page: 0, Limit: -1})
		require.NoError(t, err)
		assert.Len(t, msgs, models.DefaultPageSize)
		assert.Equal(t, 1, p.CurrentPage)
	})

	t.Run("status filter", func(t *testing.T) {
		ok, err := models.FailVoiceMessage(db, 1)
		require.NoError(t, err)
		require.True(t, ok)

		msgs, total, _, err := models.ListVoiceMessages(db, models.VoiceQuery{Status: models.StatusError})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, msgs, 1)
		assert.EqualValues(t, 1, msgs[0].ID)
	})
}

func TestUpdateVoiceMessage(t *testing.T) {
	db := testutil.NewTestDB(t)
	msg, err := models.CreateVoiceMessage(db, "k", "", "u")
	require.NoError(t, err)

	updated, err := models.UpdateVoiceMessage(db, msg.ID, "edited text", true)
	require.NoError(t, err)
	require.NotNil(t, updated.ModeratedText)
	assert.Equal(t, "edited text", *updated.ModeratedText)
	assert.True(t, updated.IsApproved)

	_, err = models.UpdateVoiceMessage(db, msg.ID, "", true)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = models.UpdateVoiceMessage(db, 12345, "x", true)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteVoiceMessage(t *testing.T) {
	db := testutil.NewTestDB(t)
	msg, err := models.CreateVoiceMessage(db, "k", "", "u")
	require.NoError(t, err)

	require.NoError(t, models.DeleteVoiceMessage(db, msg.ID))

	_, err = models.GetVoiceMessage(db, msg.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	err = models.DeleteVoiceMessage(db, msg.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestCompleteVoiceMessageIsGuarded(t *testing.T) {
	db := testutil.NewTestDB(t)
	msg, err := models.CreateVoiceMessage(db, "k", "", "u")
	require.NoError(t, err)

	ok, err := models.CompleteVoiceMessage(db, msg.ID, "hello", "hello", true)
	require.NoError(t, err)
	assert.True(t, ok)

	// a late failure must not revert the finished record
	ok, err = models.FailVoiceMessage(db, msg.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = models.CompleteVoiceMessage(db, msg.ID, "other", "other", false)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := models.GetVoiceMessage(db, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "hello", *got.Transcription)
	assert.True(t, got.IsApproved)
}

func TestFailStaleVoiceMessages(t *testing.T) {
	db := testutil.NewTestDB(t)
	old, err := models.CreateVoiceMessage(db, "old", "", "u")
	require.NoError(t, err)
	fresh, err := models.CreateVoiceMessage(db, "fresh", "", "u")
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, db.Model(&models.VoiceMessage{}).Where("id = ?", old.ID).UpdateColumn("created_at", past).Error)

	var failed []uint
	util.Sig().Connect(models.SigVoiceFailed, func(sender any, _ ...any) {
		failed = append(failed, sender.(uint))
	})
	t.Cleanup(func() { util.Sig().Clear(models.SigVoiceFailed) })

	n, err := models.FailStaleVoiceMessages(db, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, []uint{old.ID}, failed)

	n, err = models.FailStaleVoiceMessages(db, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, failed, 1)

	got, err := models.GetVoiceMessage(db, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.Status)

	got, err = models.GetVoiceMessage(db, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)

	counts, err := models.VoiceStatusCounts(db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.StatusError])
	assert.EqualValues(t, 1, counts[models.StatusProcessing])
	assert.EqualValues(t, 0, counts[models.StatusCompleted])
}

func TestDisplayText(t *testing.T) {
	tr := "raw"
	mod := "masked"
	empty := ""

	assert.Equal(t, "masked", (&models.VoiceMessage{Transcription: &tr, ModeratedText: &mod}).DisplayText())
	assert.Equal(t, "raw", (&models.VoiceMessage{Transcription: &tr, ModeratedText: &empty}).DisplayText())
	assert.Equal(t, "", (&models.VoiceMessage{}).DisplayText())
}
