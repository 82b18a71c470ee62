package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusReceived, StatusQueued, true},
		{StatusQueued, StatusProcessing, true},
		{StatusQueued, StatusCompleted, true},
		{StatusQueued, StatusFailed, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},

		// No regressions.
		{StatusProcessing, StatusQueued, false},
		{StatusQueued, StatusReceived, false},
		{StatusQueued, StatusQueued, false},

		// Terminal states accept nothing.
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusCompleted, false},
		{StatusFailed, StatusCompleted, false},
		{StatusFailed, StatusProcessing, false},

		// Unknown states never transition.
		{StatusQueued, Status("bogus"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, StatusReceived.Terminal())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusQueued.Valid())
	assert.False(t, Status("bogus").Valid())
	assert.False(t, Status("").Valid())
}
