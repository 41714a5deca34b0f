package interactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestButtonEdges_SinglePress(t *testing.T) {
	a := newInputAggregator()

	a.recordButton(7, "b", true)

	// Before the tick boundary nothing is visible.
	assert.False(t, a.buttonDown("b", 7))

	a.shift()
	assert.True(t, a.buttonDown("b", 7))
	assert.True(t, a.buttonPressed("b", 7))
	assert.False(t, a.buttonUp("b", 7))
	assert.Equal(t, uint32(1), a.countOfDowns("b", 7))
	assert.Equal(t, uint32(1), a.countOfPresses("b", 7))

	// Next tick with no input: the edge is gone and counts roll to zero.
	a.shift()
	assert.False(t, a.buttonDown("b", 7))
	assert.False(t, a.buttonPressed("b", 7))
	assert.Equal(t, uint32(0), a.countOfPresses("b", 7))
}

func TestButtonEdges_HoldAndRelease(t *testing.T) {
	a := newInputAggregator()

	// Down, then a held repeat within the same tick window.
	a.recordButton(7, "b", true)
	a.recordButton(7, "b", true)
	a.shift()

	assert.Equal(t, uint32(1), a.countOfDowns("b", 7), "only the first sample is a down edge")
	assert.Equal(t, uint32(2), a.countOfPresses("b", 7))
	assert.False(t, a.buttonUp("b", 7))

	a.recordButton(7, "b", false)
	a.shift()

	assert.False(t, a.buttonDown("b", 7))
	assert.False(t, a.buttonPressed("b", 7))
	assert.True(t, a.buttonUp("b", 7))
	assert.Equal(t, uint32(1), a.countOfUps("b", 7))
}

func TestButtonCounters_NextAlwaysZeroAfterShift(t *testing.T) {
	a := newInputAggregator()

	a.recordButton(1, "x", true)
	a.recordButton(2, "x", true)
	a.recordButton(2, "x", false)
	a.shift()

	for _, st := range a.buttons {
		assert.Zero(t, st.down.next)
		assert.Zero(t, st.pressed.next)
		assert.Zero(t, st.up.next)
	}
	for _, st := range a.globalButtons {
		assert.Zero(t, st.down.next)
		assert.Zero(t, st.pressed.next)
		assert.Zero(t, st.up.next)
	}
}

func TestButtonCounters_PerParticipantIsolation(t *testing.T) {
	a := newInputAggregator()

	a.recordButton(1, "b", true)
	a.shift()

	assert.True(t, a.buttonDown("b", 1))
	assert.False(t, a.buttonDown("b", 2))
}

func TestGlobalButtonCounters_AggregateAcrossParticipants(t *testing.T) {
	a := newInputAggregator()

	a.recordButton(1, "b", true)
	a.recordButton(2, "b", true)
	a.shift()

	assert.True(t, a.anyButtonDown("b"))
	assert.True(t, a.anyButtonPressed("b"))
	assert.Equal(t, uint32(1), a.countOfDowns("b", 1))

	st := a.globalButtons["b"]
	assert.Equal(t, uint32(2), st.down.current, "each participant's first press is its own down edge")
}

func TestJoystick_CumulativeMean(t *testing.T) {
	a := newInputAggregator()

	a.recordJoystick(7, "j", 1.0, -1.0)
	assert.InDelta(t, 1.0, a.joystickX("j", 7), 1e-9)
	assert.InDelta(t, -1.0, a.joystickY("j", 7), 1e-9)

	a.recordJoystick(7, "j", 0.0, 0.0)
	// Float-domain smoothing: the mean of two samples, not the integer
	// truncation of the source formula.
	assert.InDelta(t, 0.5, a.joystickX("j", 7), 1e-9)
	assert.InDelta(t, -0.5, a.joystickY("j", 7), 1e-9)

	a.recordJoystick(7, "j", 0.5, 0.5)
	assert.InDelta(t, 0.5, a.joystickX("j", 7), 1e-9)
	assert.InDelta(t, -1.0/6.0, a.joystickY("j", 7), 1e-9)
}

func TestJoystick_GlobalMeanSpansParticipants(t *testing.T) {
	a := newInputAggregator()

	a.recordJoystick(1, "j", 1.0, 0.0)
	a.recordJoystick(2, "j", 0.0, 1.0)

	assert.InDelta(t, 0.5, a.anyJoystickX("j"), 1e-9)
	assert.InDelta(t, 0.5, a.anyJoystickY("j"), 1e-9)

	// Per-participant means are untouched by each other's samples.
	assert.InDelta(t, 1.0, a.joystickX("j", 1), 1e-9)
	assert.InDelta(t, 0.0, a.joystickX("j", 2), 1e-9)
}

func TestJoystick_AbsentStateReadsZero(t *testing.T) {
	a := newInputAggregator()
	assert.Zero(t, a.joystickX("missing", 1))
	assert.Zero(t, a.joystickY("missing", 1))
}

func TestReset(t *testing.T) {
	a := newInputAggregator()
	a.recordButton(1, "b", true)
	a.recordJoystick(1, "j", 1, 1)
	a.shift()

	a.reset()
	assert.False(t, a.buttonDown("b", 1))
	assert.Zero(t, a.joystickX("j", 1))
}
