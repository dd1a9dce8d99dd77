package scenes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volunteerhub/eventbot/internal/service"
)

func TestEventSummaryCountsRegistrations(t *testing.T) {
	h := newHarness(t)
	const userID = int64(300)
	ev := h.seedEvent(userID, "Beach Cleanup")
	h.seedEvent(userID, "Food Drive")

	age := 12
	for i, nr := range []service.NewRegistration{
		{EventID: ev.ID, ParticipantName: "Alice Tan"},
		{EventID: ev.ID, ParticipantName: "Ben Tan", ParticipantAge: &age},
		{EventID: ev.ID, ParticipantName: "Chitra Devi"},
	} {
		nr.UserTelegramID = int64(1000 + i)
		_, err := h.registrations.Create(context.Background(), nr)
		require.NoError(t, err)
	}

	h.enter(t, userID, SceneEventSummary, nil)
	pick := h.msg.last()
	require.Len(t, pick.buttons, 2)
	assert.Equal(t, "sum_sel_1", pick.buttons[0].Token)
	assert.Equal(t, "Beach Cleanup", pick.buttons[0].Label)

	h.action(t, userID, "sum_sel_1")
	summary := h.msg.last().text
	assert.Contains(t, summary, "Beach Cleanup")
	assert.Contains(t, summary, "Signed up: 3 of 20")
	assert.Contains(t, summary, "- Alice Tan")
	assert.Contains(t, summary, "- Ben Tan, age 12")
	assert.Contains(t, summary, "- Chitra Devi")
	assert.False(t, h.active(t, userID))
}

func TestEventSummaryIgnoresStrayText(t *testing.T) {
	h := newHarness(t)
	const userID = int64(301)
	h.seedEvent(userID, "Beach Cleanup")

	h.enter(t, userID, SceneEventSummary, nil)
	h.text(t, userID, "the first one")
	assert.Contains(t, h.msg.last().text, "Pick an event")
	assert.True(t, h.active(t, userID))

	h.action(t, userID, "sum_sel_1")
	assert.False(t, h.active(t, userID))
}
