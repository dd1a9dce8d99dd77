package scenes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventHappyPath(t *testing.T) {
	h := newHarness(t)
	const userID = int64(100)

	h.enter(t, userID, SceneNewEvent, nil)
	assert.Contains(t, h.msg.last().text, "What is it called")

	h.text(t, userID, "Beach Cleanup")
	h.text(t, userID, "2026-09-14")
	h.text(t, userID, "18:30")
	h.text(t, userID, "East Coast Park")
	h.text(t, userID, "25")
	h.text(t, userID, "Bring gloves")
	h.photo(t, userID, "photo-file-123")

	preview := h.msg.last()
	assert.Contains(t, preview.text, "Beach Cleanup")
	assert.Contains(t, preview.text, "East Coast Park")
	assert.Contains(t, preview.text, "Poster: attached")
	require.Len(t, preview.buttons, 2)
	assert.Equal(t, tokenConfirm, preview.buttons[0].Token)

	h.action(t, userID, tokenConfirm)

	require.Len(t, h.events.created, 1)
	created := h.events.created[0]
	assert.Equal(t, userID, created.OrganiserTelegramID)
	assert.Equal(t, "Beach Cleanup", created.Title)
	assert.Equal(t, "East Coast Park", created.Location)
	assert.Equal(t, 25, created.Capacity)
	assert.Equal(t, "Bring gloves", created.Description)
	assert.Equal(t, "photo-file-123", created.ImageFileID)
	want := time.Date(2026, 9, 14, 18, 30, 0, 0, time.Local)
	assert.True(t, created.DateTime.Equal(want), "got %v", created.DateTime)

	assert.True(t, h.msg.contains("start=ev_1"))
	assert.False(t, h.active(t, userID), "session should end after publishing")
}

func TestNewEventSkipsDescriptionAndPhoto(t *testing.T) {
	h := newHarness(t)
	const userID = int64(101)

	h.enter(t, userID, SceneNewEvent, nil)
	h.text(t, userID, "Food Drive")
	h.text(t, userID, "14.09.2026")
	h.text(t, userID, "09:00")
	h.text(t, userID, "Blk 123 Void Deck")
	h.text(t, userID, "10")
	h.text(t, userID, "/skip")
	h.text(t, userID, "/skip")
	h.action(t, userID, tokenConfirm)

	require.Len(t, h.events.created, 1)
	assert.Empty(t, h.events.created[0].Description)
	assert.Empty(t, h.events.created[0].ImageFileID)
}

func TestNewEventRejectsBadInputAndStays(t *testing.T) {
	h := newHarness(t)
	const userID = int64(102)

	h.enter(t, userID, SceneNewEvent, nil)
	h.text(t, userID, "Beach Cleanup")

	h.text(t, userID, "next tuesday-ish")
	assert.Contains(t, h.msg.last().text, "couldn't read that date")
	h.text(t, userID, "2026-09-14")

	h.text(t, userID, "half past six")
	assert.Contains(t, h.msg.last().text, "couldn't read that time")
	h.text(t, userID, "18:30")

	h.text(t, userID, "East Coast Park")
	h.text(t, userID, "-3")
	assert.Contains(t, h.msg.last().text, "positive number")
	h.text(t, userID, "25")

	assert.True(t, h.active(t, userID))
	assert.Empty(t, h.events.created)
}

func TestNewEventTextAtConfirmDoesNotCreate(t *testing.T) {
	h := newHarness(t)
	const userID = int64(103)

	h.enter(t, userID, SceneNewEvent, nil)
	h.text(t, userID, "Beach Cleanup")
	h.text(t, userID, "2026-09-14")
	h.text(t, userID, "18:30")
	h.text(t, userID, "East Coast Park")
	h.text(t, userID, "25")
	h.text(t, userID, "/skip")
	h.text(t, userID, "/skip")

	h.text(t, userID, "yes please")
	assert.Empty(t, h.events.created, "free text must not trigger the write")
	assert.True(t, h.active(t, userID))

	h.action(t, userID, tokenConfirm)
	assert.Len(t, h.events.created, 1)
}

func TestNewEventCancelTokenAborts(t *testing.T) {
	h := newHarness(t)
	const userID = int64(104)

	h.enter(t, userID, SceneNewEvent, nil)
	h.text(t, userID, "Beach Cleanup")
	h.action(t, userID, "cancel")

	assert.False(t, h.active(t, userID))
	assert.Empty(t, h.events.created)
}
