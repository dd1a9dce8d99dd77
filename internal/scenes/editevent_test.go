package scenes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditEventChangesOnlyProvidedFields(t *testing.T) {
	h := newHarness(t)
	const userID = int64(200)
	h.seedEvent(userID, "Beach Cleanup")
	h.seedEvent(userID, "Food Drive")

	h.enter(t, userID, SceneEditEvent, nil)
	listing := h.msg.last().text
	assert.Contains(t, listing, "1. Beach Cleanup")
	assert.Contains(t, listing, "2. Food Drive")

	h.text(t, userID, "2")
	h.text(t, userID, "/skip")                 // keep title
	h.text(t, userID, "2026-10-01 10:00")      // new date
	h.text(t, userID, "/skip")                 // keep location
	h.text(t, userID, "40")                    // new capacity
	h.text(t, userID, "/skip")                 // keep description
	h.action(t, userID, tokenConfirm)

	require.Len(t, h.events.updated, 1)
	upd := h.events.updated[0]
	assert.Nil(t, upd.Title)
	assert.Nil(t, upd.Location)
	assert.Nil(t, upd.Description)
	require.NotNil(t, upd.DateTime)
	require.NotNil(t, upd.Capacity)
	assert.Equal(t, 40, *upd.Capacity)
	want := time.Date(2026, 10, 1, 10, 0, 0, 0, time.Local)
	assert.True(t, upd.DateTime.Equal(want), "got %v", *upd.DateTime)

	stored := h.events.events[2]
	assert.Equal(t, "Food Drive", stored.Title)
	assert.Equal(t, 40, stored.Capacity)
	assert.False(t, h.active(t, userID))
}

func TestEditEventRejectsOutOfRangeSelection(t *testing.T) {
	h := newHarness(t)
	const userID = int64(201)
	h.seedEvent(userID, "Beach Cleanup")

	h.enter(t, userID, SceneEditEvent, nil)
	h.text(t, userID, "7")
	assert.Contains(t, h.msg.last().text, "listed numbers")
	assert.True(t, h.active(t, userID))

	h.text(t, userID, "1")
	assert.Contains(t, h.msg.last().text, "New title")
}

func TestEditEventWithNoEventsLeavesImmediately(t *testing.T) {
	h := newHarness(t)
	const userID = int64(202)

	h.enter(t, userID, SceneEditEvent, nil)
	assert.Contains(t, h.msg.last().text, "haven't created any events")
	assert.False(t, h.active(t, userID))
}
