package scenes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileStandaloneSavesAndLeaves(t *testing.T) {
	h := newHarness(t)
	const userID = int64(500)

	h.enter(t, userID, SceneProfile, nil)
	assert.Contains(t, h.msg.last().text, "full name")

	h.text(t, userID, "Alice Tan")
	h.text(t, userID, "91234567")

	assert.True(t, h.msg.contains("Profile saved"))
	assert.False(t, h.active(t, userID))

	u, err := h.users.GetByTelegramID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Tan", u.Name.String)
	assert.Equal(t, "91234567", u.Phone.String)
}

func TestProfileRejectsBadPhone(t *testing.T) {
	h := newHarness(t)
	const userID = int64(501)

	h.enter(t, userID, SceneProfile, nil)
	h.text(t, userID, "Alice Tan")

	h.text(t, userID, "call me maybe")
	assert.Contains(t, h.msg.last().text, "doesn't look like a phone number")
	assert.True(t, h.active(t, userID))

	h.text(t, userID, "1234")
	assert.Contains(t, h.msg.last().text, "doesn't look like a phone number")

	h.text(t, userID, "+65 9123-4567")
	assert.False(t, h.active(t, userID))
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+65 9123 4567", "+6591234567"},
		{"(555) 123-4567", "5551234567"},
		{"91234567", "91234567"},
		{"12345", ""},
		{"not a number", ""},
		{"+65x9123", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizePhone(tc.in), "input %q", tc.in)
	}
}
