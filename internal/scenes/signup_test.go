package scenes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupForSelfSkipsOnBehalfQuestions(t *testing.T) {
	h := newHarness(t)
	const userID = int64(400)
	const organiserID = int64(1)
	ev := h.seedEvent(organiserID, "Beach Cleanup")
	h.seedUserWithPhone(userID, "Alice Tan")

	h.enter(t, userID, SceneSignup, map[string]any{PayloadEventID: ev.ID})
	intro := h.msg.last()
	assert.Contains(t, intro.text, "Beach Cleanup")
	require.Len(t, intro.buttons, 2)

	h.action(t, userID, tokenRoleBeneficiary)
	h.text(t, userID, "Alice Tan")
	// Matching the profile name skips straight to requirements; no age asked.
	assert.Contains(t, h.msg.last().text, "requirements")

	h.text(t, userID, "/skip")
	h.action(t, userID, tokenConfirm)

	require.Len(t, h.registrations.created, 1)
	reg := h.registrations.created[0]
	assert.Equal(t, ev.ID, reg.EventID)
	assert.Equal(t, userID, reg.UserTelegramID)
	assert.Equal(t, "Alice Tan", reg.ParticipantName)
	assert.Nil(t, reg.ParticipantAge)
	assert.False(t, h.active(t, userID))
}

func TestSignupOnBehalfAsksAge(t *testing.T) {
	h := newHarness(t)
	const userID = int64(401)
	ev := h.seedEvent(1, "Beach Cleanup")
	h.seedUserWithPhone(userID, "Alice Tan")

	h.enter(t, userID, SceneSignup, map[string]any{PayloadEventID: ev.ID})
	h.action(t, userID, tokenRoleBeneficiary)
	h.text(t, userID, "Ben Tan")

	ask := h.msg.last()
	assert.Contains(t, ask.text, "someone else")
	require.Len(t, ask.buttons, 2)
	h.action(t, userID, tokenOnBehalf)
	assert.Contains(t, h.msg.last().text, "How old is Ben Tan")

	h.text(t, userID, "twelve")
	assert.Contains(t, h.msg.last().text, "as a number")
	h.text(t, userID, "12")
	h.text(t, userID, "wheelchair access")
	h.action(t, userID, tokenConfirm)

	require.Len(t, h.registrations.created, 1)
	reg := h.registrations.created[0]
	assert.Equal(t, "Ben Tan", reg.ParticipantName)
	require.NotNil(t, reg.ParticipantAge)
	assert.Equal(t, 12, *reg.ParticipantAge)
	assert.Equal(t, "wheelchair access", reg.Notes)
}

func TestSignupMistypedOwnNameCorrectsToProfile(t *testing.T) {
	h := newHarness(t)
	const userID = int64(406)
	ev := h.seedEvent(1, "Beach Cleanup")
	h.seedUserWithPhone(userID, "Alice Tan")

	h.enter(t, userID, SceneSignup, map[string]any{PayloadEventID: ev.ID})
	h.action(t, userID, tokenRoleBeneficiary)
	h.text(t, userID, "Alice Tanx")

	// A near-miss on the user's own name must not be treated as an
	// on-behalf sign-up without asking.
	ask := h.msg.last()
	assert.Contains(t, ask.text, "someone else")
	require.Len(t, ask.buttons, 2)

	// Free text at the confirmation is rejected, buttons only.
	h.text(t, userID, "no")
	assert.Contains(t, h.msg.last().text, "buttons")

	h.action(t, userID, tokenSelf)
	assert.Contains(t, h.msg.last().text, "requirements")

	h.text(t, userID, "/skip")
	h.action(t, userID, tokenConfirm)

	require.Len(t, h.registrations.created, 1)
	reg := h.registrations.created[0]
	assert.Equal(t, "Alice Tan", reg.ParticipantName, "registration carries the profile name, not the typo")
	assert.Nil(t, reg.ParticipantAge)
	assert.False(t, h.active(t, userID))
}

func TestSignupOrganiserRoleHopsToSummary(t *testing.T) {
	h := newHarness(t)
	const userID = int64(402)
	ev := h.seedEvent(userID, "Beach Cleanup")
	h.seedUserWithPhone(userID, "Alice Tan")

	h.enter(t, userID, SceneSignup, map[string]any{PayloadEventID: ev.ID})
	h.action(t, userID, tokenRoleOrganiser)

	pick := h.msg.last()
	assert.Contains(t, pick.text, "summary")
	require.NotEmpty(t, pick.buttons)
	assert.Equal(t, "sum_sel_1", pick.buttons[0].Token)
	assert.True(t, h.active(t, userID))
}

func TestSignupWithoutPhoneDetoursThroughProfile(t *testing.T) {
	h := newHarness(t)
	const userID = int64(403)
	ev := h.seedEvent(1, "Beach Cleanup")

	h.enter(t, userID, SceneSignup, map[string]any{PayloadEventID: ev.ID})
	assert.Contains(t, h.msg.last().text, "full name")

	h.text(t, userID, "Alice Tan")
	h.text(t, userID, "+65 9123 4567")

	// The profile hop carries the pending event back into signup.
	assert.True(t, h.msg.contains("Back to your sign-up"))
	intro := h.msg.last()
	assert.Contains(t, intro.text, "Beach Cleanup")
	require.Len(t, intro.buttons, 2)

	h.action(t, userID, tokenRoleBeneficiary)
	h.text(t, userID, "Alice Tan")
	h.text(t, userID, "/skip")
	h.action(t, userID, tokenConfirm)

	require.Len(t, h.registrations.created, 1)
	assert.Equal(t, "Alice Tan", h.registrations.created[0].ParticipantName)

	u, err := h.users.GetByTelegramID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "+6591234567", u.Phone.String)
}

func TestSignupForMissingEventLeaves(t *testing.T) {
	h := newHarness(t)
	const userID = int64(404)
	h.seedUserWithPhone(userID, "Alice Tan")

	h.enter(t, userID, SceneSignup, map[string]any{PayloadEventID: int64(999)})
	assert.Contains(t, h.msg.last().text, "no longer exists")
	assert.False(t, h.active(t, userID))
}

func TestSignupConfirmIgnoresFreeTextNoDuplicateWrite(t *testing.T) {
	h := newHarness(t)
	const userID = int64(405)
	ev := h.seedEvent(1, "Beach Cleanup")
	h.seedUserWithPhone(userID, "Alice Tan")

	h.enter(t, userID, SceneSignup, map[string]any{PayloadEventID: ev.ID})
	h.action(t, userID, tokenRoleBeneficiary)
	h.text(t, userID, "Alice Tan")
	h.text(t, userID, "/skip")

	h.text(t, userID, "ok")
	h.text(t, userID, "confirm")
	assert.Empty(t, h.registrations.created, "text input must not trigger the write")

	h.action(t, userID, tokenConfirm)
	assert.Len(t, h.registrations.created, 1)
}
