package models_test

import (
	"VoiceBoard/internal/models"
	"VoiceBoard/internal/testutil"
	"VoiceBoard/pkg/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDisplayMessage(t *testing.T) {
	db := testutil.NewTestDB(t)

	msg, err := models.CreateDisplayMessage(db, "hello", 2)
	require.NoError(t, err)
	assert.True(t, msg.IsActive)
	assert.Equal(t, 2, msg.DisplayOrder)

	_, err = models.CreateDisplayMessage(db, "", 0)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestListDisplayMessagesOrdering(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, err := models.CreateDisplayMessage(db, "B", 2)
	require.NoError(t, err)
	_, err = models.CreateDisplayMessage(db, "A", 1)
	require.NoError(t, err)
	c, err := models.CreateDisplayMessage(db, "C", 1)
	require.NoError(t, err)
	_, err = models.UpdateDisplayMessage(db, c.ID, models.DisplayMessageUpdate{IsActive: testutil.BoolPtr(false)})
	require.NoError(t, err)

	all, err := models.ListDisplayMessages(db, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"C", "A", "B"}, texts(all))

	active, err := models.ListDisplayMessages(db, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, texts(active))
}

func TestUpdateDisplayMessagePartial(t *testing.T) {
	db := testutil.NewTestDB(t)
	msg, err := models.CreateDisplayMessage(db, "keep me", 3)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.DisplayMessage{}).Where("id = ?", msg.ID).UpdateColumn("updated_at", past).Error)

	updated, err := models.UpdateDisplayMessage(db, msg.ID, models.DisplayMessageUpdate{IsActive: testutil.BoolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "keep me", updated.MessageText)
	assert.Equal(t, 3, updated.DisplayOrder)
	assert.True(t, updated.UpdatedAt.After(past))
}

func TestUpdateDisplayMessageErrors(t *testing.T) {
	db := testutil.NewTestDB(t)
	msg, err := models.CreateDisplayMessage(db, "x", 0)
	require.NoError(t, err)

	_, err = models.UpdateDisplayMessage(db, msg.ID, models.DisplayMessageUpdate{})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = models.UpdateDisplayMessage(db, msg.ID, models.DisplayMessageUpdate{MessageText: testutil.StrPtr("")})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = models.UpdateDisplayMessage(db, 999, models.DisplayMessageUpdate{DisplayOrder: testutil.IntPtr(1)})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestToggleAndDeleteDisplayMessage(t *testing.T) {
	db := testutil.NewTestDB(t)
	msg, err := models.CreateDisplayMessage(db, "x", 0)
	require.NoError(t, err)

	toggled, err := models.ToggleDisplayMessage(db, msg.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = models.ToggleDisplayMessage(db, msg.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	require.NoError(t, models.DeleteDisplayMessage(db, msg.ID))
	assert.True(t, errors.Is(models.DeleteDisplayMessage(db, msg.ID), errors.ErrNotFound))
	_, err = models.ToggleDisplayMessage(db, msg.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func texts(msgs []models.DisplayMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.MessageText)
	}
	return out
}
